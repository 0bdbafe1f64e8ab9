package inventory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- ComputeChangeID ---

func TestComputeChangeID(t *testing.T) {
	id := ComputeChangeID("gate", 3, "sha256:abc")
	assert.True(t, strings.HasPrefix(id, "change-sha1-"))
	assert.Len(t, id, len("change-sha1-")+8)

	assert.Equal(t, id, ComputeChangeID("gate", 3, "sha256:abc"), "deterministic")
	assert.NotEqual(t, id, ComputeChangeID("gate", 4, "sha256:abc"), "version matters")
	assert.NotEqual(t, id, ComputeChangeID("gate", 3, "sha256:def"), "digest matters")
	assert.NotEqual(t, ComputeChangeID("gate", 13, ""), ComputeChangeID("gate1", 3, ""),
		"fields are separated")
}

// --- UpdateIndex ---

func TestUpdateIndex(t *testing.T) {
	tests := []struct {
		name  string
		index []string
		id    string
		want  []string
	}{
		{"empty", nil, "a", []string{"a"}},
		{"new id prepended", []string{"b", "c"}, "a", []string{"a", "b", "c"}},
		{"re-record moves to front", []string{"b", "a", "c"}, "a", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UpdateIndex(tt.index, tt.id))
		})
	}
}

func TestUpdateIndex_DoesNotMutateInput(t *testing.T) {
	index := []string{"b", "a"}
	_ = UpdateIndex(index, "a")
	assert.Equal(t, []string{"b", "a"}, index)
}

// --- PruneHistory ---

func historyWith(n int) *History {
	h := NewHistory("default", "spinnaker")
	for i := n - 1; i >= 0; i-- {
		id := fmt.Sprintf("change-sha1-%08d", i)
		h.Changes[id] = &Entry{Service: "gate", Version: i}
		h.Index = UpdateIndex(h.Index, id)
	}
	return h
}

func TestPruneHistory(t *testing.T) {
	h := historyWith(5)
	PruneHistory(h, 3)
	assert.Equal(t, []string{"change-sha1-00000000", "change-sha1-00000001", "change-sha1-00000002"}, h.Index)
	assert.Len(t, h.Changes, 3)
	assert.NotContains(t, h.Changes, "change-sha1-00000004")

	h = historyWith(2)
	PruneHistory(h, 3)
	assert.Len(t, h.Index, 2)

	h = historyWith(2)
	PruneHistory(h, 0)
	assert.Len(t, h.Index, 2, "zero disables pruning")
}

package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	tbl := NewTable("SERVICE", "VERSION").Row("gate", "v001").Row("orca", "v002")
	out := tbl.String()
	assert.Equal(t, 2, tbl.Len())
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "gate")
	assert.Contains(t, out, "v002")
}

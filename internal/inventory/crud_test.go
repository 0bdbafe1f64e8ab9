package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/hal/internal/cluster"
	"github.com/opmodel/hal/internal/cluster/fake"
	"github.com/opmodel/hal/internal/inventory"
)

const ns = "spinnaker"

// --- Load ---

func TestLoad_NothingRecorded(t *testing.T) {
	h, err := inventory.Load(context.Background(), fake.New(), "default", ns)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestLoad_PropagatesErrors(t *testing.T) {
	c := fake.New()
	c.Fail("GetSecret", errors.New("connection refused"))
	_, err := inventory.Load(context.Background(), c, "default", ns)
	assert.ErrorContains(t, err, "connection refused")
}

// --- Record ---

func TestRecord_NewestFirst(t *testing.T) {
	ctx := context.Background()
	c := fake.New()

	require.NoError(t, inventory.Record(ctx, c, "default", ns, inventory.Entry{
		Service: "redis", Version: 1, ConfigSources: []string{"redis-cfg"}, Digest: "sha256:r1",
		Timestamp: "2026-10-01T10:00:00Z",
	}))
	require.NoError(t, inventory.Record(ctx, c, "default", ns, inventory.Entry{
		Service: "gate", Version: 1, Digest: "sha256:g1",
	}))

	entries, err := inventory.Entries(ctx, c, "default", ns)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "gate", entries[0].Service)
	assert.NotEmpty(t, entries[0].Timestamp)
	assert.Equal(t, inventory.Entry{
		Service: "redis", Version: 1, ConfigSources: []string{"redis-cfg"}, Digest: "sha256:r1",
		Timestamp: "2026-10-01T10:00:00Z",
	}, entries[1])

	s, ok := c.Secret(ns, "hal.default.history")
	require.True(t, ok)
	assert.Equal(t, cluster.ComponentHistory, s.Labels[cluster.LabelComponent])

	h, err := inventory.Load(ctx, c, "default", ns)
	require.NoError(t, err)
	latest, ok := h.Latest("redis")
	require.True(t, ok)
	assert.Equal(t, 1, latest.Version)
	assert.Equal(t, "2026-10-01T10:00:00Z", latest.Timestamp)
	assert.Equal(t, entries[0].Timestamp, h.Metadata.LastTransitionTime)
}

func TestRecord_RepromotionMovesToFront(t *testing.T) {
	ctx := context.Background()
	c := fake.New()

	for _, v := range []int{1, 2, 1} {
		require.NoError(t, inventory.Record(ctx, c, "default", ns,
			inventory.Entry{Service: "gate", Version: v, Digest: fmt.Sprintf("sha256:%d", v)}))
	}
	entries, err := inventory.Entries(ctx, c, "default", ns)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Version)
	assert.Equal(t, 2, entries[1].Version)
}

func TestRecord_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := fake.New()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, inventory.Record(ctx, c, "default", ns,
				inventory.Entry{Service: fmt.Sprintf("svc-%d", i), Version: 1}))
		}()
	}
	wg.Wait()

	entries, err := inventory.Entries(ctx, c, "default", ns)
	require.NoError(t, err)
	assert.Len(t, entries, 8, "no lost updates")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := fake.New()
	require.NoError(t, inventory.Record(ctx, c, "default", ns, inventory.Entry{Service: "gate", Version: 1}))
	require.NoError(t, inventory.Record(ctx, c, "other", ns, inventory.Entry{Service: "gate", Version: 1}))

	require.NoError(t, inventory.Delete(ctx, c, "default", ns))
	assert.Equal(t, []string{"hal.other.history"}, c.SecretNames(ns))
}

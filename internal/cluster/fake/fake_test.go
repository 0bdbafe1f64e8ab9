package fake_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/hal/internal/cluster"
	"github.com/opmodel/hal/internal/cluster/fake"
	oerrors "github.com/opmodel/hal/internal/errors"
)

func TestFake_ReplicaSetsAndInstances(t *testing.T) {
	ctx := context.Background()
	c := fake.New()

	spec := cluster.ReplicaSetSpec{Service: "gate", Version: 2, Namespace: "spinnaker", Replicas: 3}
	require.NoError(t, c.CreateReplicaSet(ctx, spec))
	require.Error(t, c.CreateReplicaSet(ctx, spec), "replica sets are never replaced")
	require.NoError(t, c.CreateReplicaSet(ctx, cluster.ReplicaSetSpec{Service: "gate", Version: 1, Namespace: "spinnaker", Replicas: 1}))

	versions, err := c.ListVersions(ctx, "spinnaker", "gate")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	instances, err := c.ListInstances(ctx, "spinnaker", "gate", 2)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	for _, i := range instances {
		assert.True(t, i.Healthy())
	}

	c.SetHealthy("gate", 2)
	instances, err = c.ListInstances(ctx, "spinnaker", "gate", 2)
	require.NoError(t, err)
	assert.False(t, instances[2].Healthy())

	err = c.DeleteReplicaSet(ctx, "spinnaker", "gate", 9)
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestFake_SecretsAndFailures(t *testing.T) {
	ctx := context.Background()
	c := fake.New()

	labels := map[string]string{cluster.LabelApp: "gate"}
	require.NoError(t, c.UpsertSecret(ctx, cluster.Secret{Name: "a", Namespace: "ns", Labels: labels}))
	require.NoError(t, c.UpsertSecret(ctx, cluster.Secret{Name: "b", Namespace: "ns"}))
	assert.Equal(t, []string{"a", "b"}, c.SecretNames("ns"))

	require.NoError(t, c.DeleteSecrets(ctx, "ns", labels))
	assert.Equal(t, []string{"b"}, c.SecretNames("ns"))

	_, err := c.GetSecret(ctx, "ns", "a")
	assert.ErrorIs(t, err, oerrors.ErrNotFound)

	boom := errors.New("boom")
	c.Fail("UpsertSecret", boom)
	assert.ErrorIs(t, c.UpsertSecret(ctx, cluster.Secret{Name: "c", Namespace: "ns"}), boom)
	c.Fail("UpsertSecret", nil)
	assert.NoError(t, c.UpsertSecret(ctx, cluster.Secret{Name: "c", Namespace: "ns"}))
}

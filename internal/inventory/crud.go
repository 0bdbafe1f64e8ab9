package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
	"github.com/opmodel/hal/internal/output"
)

// DefaultMaxHistory bounds the entries kept per deployment.
const DefaultMaxHistory = 50

// recordMu serializes read-modify-write cycles of history Secrets within
// the process; services of one tier are promoted concurrently.
var recordMu sync.Mutex

// Load reads a deployment's history. It returns (nil, nil) when nothing
// has been recorded yet.
func Load(ctx context.Context, client cluster.Client, deployment, namespace string) (*History, error) {
	s, err := client.GetSecret(ctx, namespace, SecretName(deployment))
	if errors.Is(err, oerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", deployment, err)
	}
	h, err := Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("parsing history of %s: %w", deployment, err)
	}
	return h, nil
}

// Record appends e to the deployment's history. An empty Timestamp is set
// to now.
func Record(ctx context.Context, client cluster.Client, deployment, namespace string, e Entry) error {
	recordMu.Lock()
	defer recordMu.Unlock()

	h, err := Load(ctx, client, deployment, namespace)
	if err != nil {
		return err
	}
	if h == nil {
		h = NewHistory(deployment, namespace)
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	id := ComputeChangeID(e.Service, e.Version, e.Digest)
	h.Changes[id] = &e
	h.Index = UpdateIndex(h.Index, id)
	h.Metadata.LastTransitionTime = e.Timestamp
	PruneHistory(h, DefaultMaxHistory)

	s, err := Marshal(h)
	if err != nil {
		return err
	}
	if err := client.UpsertSecret(ctx, s); err != nil {
		return fmt.Errorf("writing history of %s: %w", deployment, err)
	}
	output.Debug("recorded deployment history", "deployment", deployment,
		"service", e.Service, "version", cluster.VersionLabel(e.Version), "change", id)
	return nil
}

// Entries returns the recorded entries newest first.
func Entries(ctx context.Context, client cluster.Client, deployment, namespace string) ([]Entry, error) {
	h, err := Load(ctx, client, deployment, namespace)
	if err != nil || h == nil {
		return nil, err
	}
	return h.Entries(), nil
}

// Delete removes the history Secret.
func Delete(ctx context.Context, client cluster.Client, deployment, namespace string) error {
	return client.DeleteSecrets(ctx, namespace, Labels(deployment))
}

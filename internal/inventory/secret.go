package inventory

import (
	"fmt"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/opmodel/hal/internal/cluster"
)

const (
	secretKeyMetadata = "metadata"
	secretKeyIndex    = "index"
	secretKeyPrefix   = "change-sha1-"
)

// SecretName returns the name of a deployment's history Secret.
func SecretName(deployment string) string {
	return fmt.Sprintf("hal.%s.history", deployment)
}

// Labels returns the labels of a history Secret.
func Labels(deployment string) map[string]string {
	return map[string]string{
		cluster.LabelManagedBy:  cluster.LabelManagedByValue,
		cluster.LabelDeployment: deployment,
		cluster.LabelComponent:  cluster.ComponentHistory,
	}
}

// Marshal serializes h into a Secret.
func Marshal(h *History) (cluster.Secret, error) {
	data := make(map[string][]byte, len(h.Changes)+2)

	meta, err := yaml.Marshal(h.Metadata)
	if err != nil {
		return cluster.Secret{}, fmt.Errorf("marshaling history metadata: %w", err)
	}
	data[secretKeyMetadata] = meta

	index, err := yaml.Marshal(h.Index)
	if err != nil {
		return cluster.Secret{}, fmt.Errorf("marshaling history index: %w", err)
	}
	data[secretKeyIndex] = index

	for id, e := range h.Changes {
		b, err := yaml.Marshal(e)
		if err != nil {
			return cluster.Secret{}, fmt.Errorf("marshaling history entry %q: %w", id, err)
		}
		data[id] = b
	}

	return cluster.Secret{
		Name:      SecretName(h.Metadata.Deployment),
		Namespace: h.Metadata.Namespace,
		Labels:    Labels(h.Metadata.Deployment),
		Data:      data,
	}, nil
}

// Unmarshal parses a history Secret.
func Unmarshal(s *cluster.Secret) (*History, error) {
	raw, ok := s.Data[secretKeyMetadata]
	if !ok {
		return nil, fmt.Errorf("history secret %s missing %q key", s.Name, secretKeyMetadata)
	}
	h := &History{Changes: map[string]*Entry{}}
	if err := yaml.Unmarshal(raw, &h.Metadata); err != nil {
		return nil, fmt.Errorf("parsing history metadata: %w", err)
	}

	raw, ok = s.Data[secretKeyIndex]
	if !ok {
		return nil, fmt.Errorf("history secret %s missing %q key", s.Name, secretKeyIndex)
	}
	if err := yaml.Unmarshal(raw, &h.Index); err != nil {
		return nil, fmt.Errorf("parsing history index: %w", err)
	}
	if h.Index == nil {
		h.Index = []string{}
	}

	for k, v := range s.Data {
		if !strings.HasPrefix(k, secretKeyPrefix) {
			continue
		}
		var e Entry
		if err := yaml.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("parsing history entry %q: %w", k, err)
		}
		h.Changes[k] = &e
	}
	return h, nil
}

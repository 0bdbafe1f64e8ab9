// Package inventory records which version of each service a deployment
// promoted, and with which configuration, in a per-deployment history
// Secret.
package inventory

// Entry is one promotion of a service version.
type Entry struct {
	Service string `json:"service"`
	Version int    `json:"version"`
	// ConfigSources are the IDs of the staged config secrets mounted by the version.
	ConfigSources []string `json:"configSources"`
	// Digest is the sha256 of the staged configuration.
	Digest    string `json:"digest"`
	Timestamp string `json:"timestamp"` // RFC 3339
}

// Metadata is the deployment-level part of the history Secret.
type Metadata struct {
	Kind       string `json:"kind"`
	APIVersion string `json:"apiVersion"`
	Deployment string `json:"deployment"`
	Namespace  string `json:"namespace"`
	// LastTransitionTime is the time of the latest recorded entry.
	LastTransitionTime string `json:"lastTransitionTime"`
}

// History is the in-memory form of a history Secret.
type History struct {
	Metadata Metadata
	Index    []string          // change IDs, newest first
	Changes  map[string]*Entry // keyed by "change-sha1-<8hex>"
}

// NewHistory returns an empty history for a deployment.
func NewHistory(deployment, namespace string) *History {
	return &History{
		Metadata: Metadata{
			Kind:       "DeploymentHistory",
			APIVersion: "hal.opmodel.dev/v1alpha1",
			Deployment: deployment,
			Namespace:  namespace,
		},
		Index:   []string{},
		Changes: map[string]*Entry{},
	}
}

// Entries returns the entries newest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, 0, len(h.Index))
	for _, id := range h.Index {
		if e, ok := h.Changes[id]; ok && e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// Latest returns the newest entry for service.
func (h *History) Latest(service string) (Entry, bool) {
	for _, e := range h.Entries() {
		if e.Service == service {
			return e, true
		}
	}
	return Entry{}, false
}

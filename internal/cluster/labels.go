package cluster

// Labels applied to every object hal manages.
const (
	LabelManagedBy      = "app.kubernetes.io/managed-by"
	LabelManagedByValue = "hal"

	// LabelApp and LabelVersion form the service selector.
	LabelApp     = "app"
	LabelVersion = "version"

	LabelDeployment = "hal.opmodel.dev/deployment"

	// LabelComponent categorizes hal infrastructure objects: "config" for
	// staged config secrets and "history" for deployment history.
	LabelComponent = "hal.opmodel.dev/component"

	ComponentConfig  = "config"
	ComponentHistory = "history"
)

// ServiceLabels returns the labels of a service's objects.
func ServiceLabels(deployment, service string) map[string]string {
	return map[string]string{
		LabelManagedBy:  LabelManagedByValue,
		LabelDeployment: deployment,
		LabelApp:        service,
	}
}

// VersionSelector selects the instances of one service version.
func VersionSelector(service string, version int) map[string]string {
	return map[string]string{
		LabelApp:     service,
		LabelVersion: VersionLabel(version),
	}
}

// Merge returns the union of label sets; later sets win.
func Merge(sets ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// Matches reports whether labels carries every entry of selector.
func Matches(labels, selector map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

package halconfig

import (
	"fmt"
	"reflect"
	"strings"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// MatchingNodes returns every node of type T under root that matches filter
// all the way to the root, in walk order.
func MatchingNodes[T Node](root Node, filter NodeFilter) []T {
	var out []T
	var visit func(Node)
	visit = func(n Node) {
		if !MatchesToRoot(n, filter) {
			return
		}
		if typed, ok := n.(T); ok {
			out = append(out, typed)
		}
		for _, child := range n.Children() {
			visit(child)
		}
	}
	visit(root)
	return out
}

// UniqueNode returns the single node of type T selected by filter. It fails
// with ErrConfigNotFound when nothing matches and ErrAmbiguousConfig when more
// than one node does.
func UniqueNode[T Node](root Node, filter NodeFilter) (T, error) {
	matches := MatchingNodes[T](root, filter)
	var zero T
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return zero, oerrors.NewConfigNotFoundError(
			fmt.Sprintf("no %s matching %s was found", kindOf[T](), filter),
			filter.String(),
			"Check the name and run: hal config get")
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, QualifiedName(m))
		}
		return zero, oerrors.NewAmbiguousConfigError(
			fmt.Sprintf("%d nodes match %s: %s", len(matches), filter, strings.Join(names, ", ")),
			filter.String())
	}
}

func kindOf[T Node]() string {
	name := reflect.TypeFor[T]().String()
	name = strings.TrimPrefix(name, "*")
	return strings.TrimPrefix(name, "halconfig.")
}

// GetDeployment returns the named deployment.
func GetDeployment(h *Halconfig, name string) (*DeploymentConfiguration, error) {
	d, err := UniqueNode[*DeploymentConfiguration](h, NewFilter().WithDeployment(name))
	if err != nil {
		return nil, fmt.Errorf("deployment %q: %w", name, err)
	}
	return d, nil
}

// GetProvider returns the named provider of a deployment.
func GetProvider(h *Halconfig, deployment, provider string) (ProviderNode, error) {
	return UniqueNode[ProviderNode](h, NewFilter().WithDeployment(deployment).WithProvider(provider))
}

// GetAccount returns the named account of a provider.
func GetAccount(h *Halconfig, deployment, provider, account string) (Account, error) {
	return UniqueNode[Account](h,
		NewFilter().WithDeployment(deployment).WithProvider(provider).WithAccount(account))
}

// GetFeatures returns the deployment's feature flags.
func GetFeatures(h *Halconfig, deployment string) (*Features, error) {
	return UniqueNode[*Features](h, NewFilter().WithDeployment(deployment).WithFeatures())
}

// GetDeploymentEnvironment returns the deployment's environment.
func GetDeploymentEnvironment(h *Halconfig, deployment string) (*DeploymentEnvironment, error) {
	return UniqueNode[*DeploymentEnvironment](h, NewFilter().WithDeployment(deployment).WithDeploymentEnvironment())
}

// GetNotifications returns the deployment's notification settings.
func GetNotifications(h *Halconfig, deployment string) (*Notifications, error) {
	return UniqueNode[*Notifications](h, NewFilter().WithDeployment(deployment).WithAnyNotification())
}

// GetSecurity returns the deployment's security settings.
func GetSecurity(h *Halconfig, deployment string) (*Security, error) {
	return UniqueNode[*Security](h, NewFilter().WithDeployment(deployment).WithSecurity())
}

// ResolveDeploymentName returns name, or the halconfig's current deployment
// when name is empty.
func ResolveDeploymentName(h *Halconfig, name string) string {
	if name != "" {
		return name
	}
	if h.CurrentDeployment != "" {
		return h.CurrentDeployment
	}
	return DefaultDeploymentName
}

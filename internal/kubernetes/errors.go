package kubernetes

import (
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// translate maps an API error onto the hal error taxonomy.
func translate(err error, op, namespace, name string) error {
	if err == nil {
		return nil
	}
	ctx := map[string]string{"operation": op, "namespace": namespace}
	if name != "" {
		ctx["name"] = name
	}
	switch {
	case apierrors.IsNotFound(err):
		return oerrors.NewNotFoundError(fmt.Sprintf("%s: %s not found", op, name), namespace, "")
	case apierrors.IsForbidden(err), apierrors.IsUnauthorized(err):
		return &oerrors.DetailError{
			Type:    "permission denied",
			Message: fmt.Sprintf("%s %s: %v", op, name, err),
			Context: ctx,
			Hint:    "Check the RBAC permissions of the kubeconfig user",
			Cause:   oerrors.ErrPermission,
		}
	default:
		return oerrors.NewSubstrateError(fmt.Sprintf("%s %s failed", op, name), ctx, err)
	}
}

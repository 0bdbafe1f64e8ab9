package kubernetes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	oerrors "github.com/opmodel/hal/internal/errors"
)

func TestTranslate(t *testing.T) {
	gr := schema.GroupResource{Group: "apps", Resource: "replicasets"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", apierrors.NewNotFound(gr, "gate-v001"), oerrors.ErrNotFound},
		{"forbidden", apierrors.NewForbidden(gr, "gate-v001", errors.New("rbac")), oerrors.ErrPermission},
		{"unauthorized", apierrors.NewUnauthorized("expired"), oerrors.ErrPermission},
		{"other", apierrors.NewInternalError(errors.New("etcd down")), oerrors.ErrSubstrateUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(tt.err, "create replica set", "spinnaker", "gate-v001")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.NoError(t, translate(nil, "noop", "ns", ""))
}

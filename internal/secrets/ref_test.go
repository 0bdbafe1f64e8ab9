package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opmodel/hal/internal/secrets"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		def     string
		want    secrets.Ref
		isRef   bool
		wantErr bool
	}{
		{name: "plain", value: "hunter2", isRef: false},
		{name: "provider and path", value: "secret://vault/app/db", isRef: true,
			want: secrets.Ref{Provider: "vault", Path: "app/db", Raw: "secret://vault/app/db"}},
		{name: "with key", value: "secret://vault/app/db#password", isRef: true,
			want: secrets.Ref{Provider: "vault", Path: "app/db", Key: "password", Raw: "secret://vault/app/db#password"}},
		{name: "default provider", value: "secret:///slack/token", def: "file", isRef: true,
			want: secrets.Ref{Provider: "file", Path: "slack/token", Raw: "secret:///slack/token"}},
		{name: "default provider missing", value: "secret:///slack/token", isRef: true, wantErr: true},
		{name: "empty", value: "secret://", isRef: true, wantErr: true},
		{name: "missing path", value: "secret://vault/", isRef: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := secrets.ParseRef(tt.value, tt.def)
			assert.Equal(t, tt.isRef, ok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.isRef {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRef_ReferenceAndBaseName(t *testing.T) {
	ref, _, err := secrets.ParseRef("secret://vault/kube/config.yml#data", "")
	require.NoError(t, err)
	assert.Equal(t, "secret://vault/kube/config.yml#data", ref.Reference())
	assert.Equal(t, "config.yml", ref.BaseName())
}

func TestIsReference(t *testing.T) {
	assert.True(t, secrets.IsReference("secret://x/y"))
	assert.False(t, secrets.IsReference("/etc/secret://x"))
	assert.False(t, secrets.IsReference(""))
}

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{ExitSuccess, "Success"},
		{ExitValidationError, "Validation Error"},
		{ExitNotFound, "Not Found"},
		{ExitNoOp, "No Changes"},
		{42, "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCodeName(tt.code), "code %d", tt.code)
	}
}

package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLDiff(t *testing.T) {
	from := []byte("features:\n  chaos: false\n  jobs: true\n")

	t.Run("equal documents", func(t *testing.T) {
		out, err := YAMLDiff("old", from, "new", []byte("features:\n  jobs: true\n  chaos: false\n"), false)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("changed scalar", func(t *testing.T) {
		out, err := YAMLDiff("old", from, "new", []byte("features:\n  chaos: true\n  jobs: true\n"), false)
		require.NoError(t, err)
		assert.Contains(t, out, "features.chaos")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := YAMLDiff("old", []byte("a: [1"), "new", from, false)
		assert.Error(t, err)
	})
}

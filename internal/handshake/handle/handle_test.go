package handle

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProducesDecodableURLSafeHandles(t *testing.T) {
	h := New()

	decoded, err := base64.RawURLEncoding.DecodeString(h)
	require.NoError(t, err)
	assert.Len(t, decoded, handleBytes)
	assert.NotContains(t, h, "+")
	assert.NotContains(t, h, "/")
	assert.NotContains(t, h, "=")
}

func TestNew_HandlesAreUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		h := New()
		_, dup := seen[h]
		require.False(t, dup, "duplicate handle generated")
		seen[h] = struct{}{}
	}
}

// Package handle produces the opaque session handles that identify one
// in-flight OAuth handshake. Handles double as bearer capabilities for
// credential retrieval, so they come from a cryptographically secure source
// with 256 bits of entropy.
package handle

import (
	"crypto/rand"
	"encoding/base64"
)

const handleBytes = 32

// New returns a fresh unguessable handle. Collisions are negligible at any
// realistic concurrent-handshake count.
func New() string {
	buf := make([]byte, handleBytes)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

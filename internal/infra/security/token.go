package security

import (
	"crypto/rand"
	"encoding/base64"

	"spacebook/internal/pkg/errs"
)

const defaultIDBytes = 16

// OpaqueID returns prefix followed by n random bytes in unpadded URL-safe
// base64. JWT ids and redis lock owner tokens use it.
func OpaqueID(prefix string, n int) (string, error) {
	if n <= 0 {
		n = defaultIDBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errs.Wrap(err, "security: read entropy")
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

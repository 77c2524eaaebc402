package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// NewToken returns a cryptographically random, URL-safe token built from n
// bytes of entropy. Used for single-use email verification and password reset
// tokens.
func NewToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

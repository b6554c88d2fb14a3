package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SessionTokenBytes is the entropy of an opaque session token (256 bits).
const SessionTokenBytes = 32

// GenerateSessionToken creates a cryptographically secure random session
// token, hex-encoded (64 characters). The identifier space is large enough
// that collisions are treated as negligible; the store still enforces
// uniqueness as a constraint.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRecoveryToken returns a hex-encoded 32-byte random string used for
// password recovery and first-time account activation. These tokens are
// raw random values, not signed JWTs; possession is the only proof.
func NewRecoveryToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

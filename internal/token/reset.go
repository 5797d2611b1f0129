package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewResetSecret returns a random password-reset secret and the sha256 hex
// digest that is persisted in its place. The raw value goes to the user by
// mail and is never stored.
func NewResetSecret() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetSecret(raw), nil
}

// HashResetSecret maps a raw reset secret to its stored form.
func HashResetSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Package password wraps bcrypt hashing so the cost factor is applied
// consistently wherever a credential is written.
package password

import "golang.org/x/crypto/bcrypt"

// Hash returns the bcrypt hash of plain using the given cost.
func Hash(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt hash and a plain password.
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

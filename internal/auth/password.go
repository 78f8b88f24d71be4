// Package auth hashes and verifies account credentials.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt implements domain.PasswordHasher with bcrypt. Stored values that do
// not carry a bcrypt prefix are treated as legacy plaintext and compared in
// constant time.
type Bcrypt struct {
	Cost int
}

// NewBcrypt returns a hasher using cost, or bcrypt.DefaultCost when cost is
// outside bcrypt's accepted range.
func NewBcrypt(cost int) Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Bcrypt{Cost: cost}
}

// Hash returns a salted bcrypt hash of password.
func (b Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored credential.
func (b Bcrypt) Verify(stored, password string) bool {
	if stored == "" || password == "" {
		return false
	}
	if IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// IsHashed reports whether stored looks like a bcrypt hash.
func IsHashed(stored string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(stored, prefix) {
			return true
		}
	}
	return false
}

// dummyHash is compared against when a username is unknown so that a failed
// lookup costs roughly the same as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("smartstock-unknown-account"), bcrypt.DefaultCost)
	return h
})

// Burn performs a throwaway bcrypt comparison.
func Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}

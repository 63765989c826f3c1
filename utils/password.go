package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// dummyHash is compared against for unknown usernames so both paths cost one
// bcrypt round.
var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("unknown-admin")
	return h
})

// Credentials maps admin usernames to bcrypt hashes.
type Credentials map[string]string

func (c Credentials) Verify(username, password string) bool {
	hash, ok := c[username]
	if !ok {
		CheckPassword(dummyHash(), password)
		return false
	}
	return CheckPassword(hash, password)
}

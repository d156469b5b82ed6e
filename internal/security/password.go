package security

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a valid bcrypt hash of an unguessable string. Login attempts
// for unknown usernames compare against it so the response time matches a
// real comparison and usernames cannot be enumerated by timing.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword hashes a password using bcrypt with the default cost
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a bcrypt hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnComparison runs a bcrypt comparison that always fails, taking the
// same time as a real check.
func BurnComparison(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost of 10 balances security and login latency.
const bcryptCost = 10

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword compares a bcrypt hashed password with its plaintext version.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// HashSecret hashes a channel secret. Channel secrets use the same bcrypt
// parameters as user passwords.
func HashSecret(secret string) (string, error) {
	return HashPassword(secret)
}

// CompareSecret reports whether the supplied secret matches the stored hash.
// An empty stored hash never matches anything, including an empty supplied
// secret: a channel with no secret must not be run through this check at all.
func CompareSecret(storedHash, supplied string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(supplied)) == nil
}

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently truncates input beyond 72 bytes; reject instead.
const maxPasswordBytes = 72

// HashPassword derives a bcrypt hash for a staff password.
func HashPassword(password string) (string, error) {
	switch {
	case password == "":
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	case len(password) > maxPasswordBytes:
		return "", fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a stored bcrypt hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return fmt.Errorf("%w: password hash is empty", ErrInvalidInput)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

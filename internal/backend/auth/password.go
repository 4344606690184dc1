package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jo-hoe/pokescan/internal/common"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72
)

// ValidatePassword checks the length rules before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return common.NewError(common.KindInvalidInput,
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return common.NewError(common.KindInvalidInput,
			fmt.Sprintf("password must not exceed %d characters", MaxPasswordLength))
	}
	return nil
}

// HashPassword hashes a pre-validated password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the password matches the stored hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

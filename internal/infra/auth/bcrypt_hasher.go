package auth

import (
	"dbaportal/config"
	"dbaportal/internal/domain/service"

	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest cost accepted for stored credentials.
const MinBcryptCost = 12

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher is the constructor for bcryptHasher.
// Costs below MinBcryptCost are raised to it.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := MinBcryptCost
	if cfg != nil && cfg.Auth != nil && cfg.Auth.BcryptCost > cost {
		cost = cfg.Auth.BcryptCost
	}

	return &bcryptHasher{cost: cost}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
func (h *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)

	return string(bytes), err
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for merchant and admin passwords.
const DefaultBcryptCost = 10

// BcryptHashService implements ports.HashService using bcrypt.
type BcryptHashService struct {
	cost int
}

// NewBcryptHashService creates a bcrypt hash service. A cost outside
// bcrypt's accepted range falls back to DefaultBcryptCost.
func NewBcryptHashService(cost int) *BcryptHashService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHashService{cost: cost}
}

// Hash generates a bcrypt hash of the password.
func (s *BcryptHashService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A mismatch is not an error.
func (s *BcryptHashService) Verify(password string, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("comparing password: %w", err)
	}
}

// Package hash wraps bcrypt password hashing.
package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrFailedToHashPassword = errors.New("failed to hash password")

type HashService struct {
	cost int

	// dummy is compared against when there is no stored hash, so a missing
	// account costs as much as a wrong password.
	dummy []byte
}

// NewHashService returns a bcrypt hasher. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func NewHashService(cost int) *HashService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("blog-account-dummy-password"), cost)
	return &HashService{cost: cost, dummy: dummy}
}

func (hs *HashService) HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hs.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToHashPassword, err)
	}
	return hash, nil
}

// CheckPasswordHash reports whether password matches hash. An empty hash
// never matches but still runs a full comparison.
func (hs *HashService) CheckPasswordHash(password string, hash []byte) bool {
	if len(hash) == 0 {
		_ = bcrypt.CompareHashAndPassword(hs.dummy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

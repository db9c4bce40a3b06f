package service

import (
	"go-auth-api/logger"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is a one-way, salted, adaptive hash.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// BcryptHasher hashes with bcrypt at a fixed cost. Passwords and refresh
// token secrets use separate instances so their costs can differ.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range; zero selects
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash fails for inputs longer than 72 bytes.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash secret")
		return "", err
	}
	return string(bytes), nil
}

// Verify returns false for a mismatch and for any malformed digest.
func (h *BcryptHasher) Verify(secret, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret))
	return err == nil
}

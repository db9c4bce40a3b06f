package service

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 32 bytes hex-encode to 64 characters, inside bcrypt's 72 byte input limit.
const refreshSecretBytes = 32

// IssuedToken is a freshly created refresh credential. Secret is only ever
// held in memory; the store keeps its hash.
type IssuedToken struct {
	ID        string
	Secret    string
	Value     string
	ExpiresAt time.Time
}

// BuildRefreshToken joins the row id and the raw secret into the external form.
func BuildRefreshToken(id, secret string) string {
	return id + "." + secret
}

// ParseRefreshToken splits "<id>.<secret>". The id must be a UUID and the
// token must contain exactly one dot.
func ParseRefreshToken(refreshToken string) (id, secret string, err error) {
	if strings.Count(refreshToken, ".") != 1 {
		return "", "", ErrInvalidToken
	}
	id, secret, _ = strings.Cut(refreshToken, ".")
	if id == "" || secret == "" {
		return "", "", ErrInvalidToken
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", "", ErrInvalidToken
	}
	return id, secret, nil
}

func newRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// file: model/token.go

package model

import (
	"database/sql"
	"time"
)

// TokenState is the lifecycle state of a refresh token row at a given instant.
type TokenState string

const (
	TokenActive  TokenState = "active"
	TokenExpired TokenState = "expired"
	TokenRevoked TokenState = "revoked"
)

// RefreshToken holds the data for a refresh token in the database.
type RefreshToken struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	TokenHash string       `json:"-"` // The hash is not exposed in JSON responses.
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
	RevokedAt sql.NullTime `json:"-"`
}

// State reports the token's state at now. Revocation wins over expiry, since a
// rotated token that later passes its expiry is still a consumed token.
func (t *RefreshToken) State(now time.Time) TokenState {
	switch {
	case t.RevokedAt.Valid:
		return TokenRevoked
	case !t.ExpiresAt.After(now):
		return TokenExpired
	default:
		return TokenActive
	}
}

// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"go-auth-api/logger"
	"go-auth-api/model"

	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for refresh token database operations.
type ITokenRepository interface {
	Create(ctx context.Context, q Querier, token *model.RefreshToken) error
	FindByID(ctx context.Context, q Querier, id string) (*model.RefreshToken, error)
	FindByIDForUpdate(ctx context.Context, tx Querier, id string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, q Querier, id string) error
	RevokeAllForUser(ctx context.Context, q Querier, userID string) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct{}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{}
}

const tokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked_at`

// Create inserts a new refresh token record. ID, UserID, TokenHash and
// ExpiresAt must be set; CreatedAt is filled from the database.
func (r *TokenRepository) Create(ctx context.Context, q Querier, token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"token_id":   token.ID,
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := q.QueryRowContext(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt).Scan(&token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// FindByID retrieves a refresh token by its id. It returns sql.ErrNoRows if
// there is no such row.
func (r *TokenRepository) FindByID(ctx context.Context, q Querier, id string) (*model.RefreshToken, error) {
	return r.find(ctx, q, id, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE id = $1`)
}

// FindByIDForUpdate is FindByID with a row lock held until tx ends.
func (r *TokenRepository) FindByIDForUpdate(ctx context.Context, tx Querier, id string) (*model.RefreshToken, error) {
	return r.find(ctx, tx, id, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE id = $1 FOR UPDATE`)
}

func (r *TokenRepository) find(ctx context.Context, q Querier, id, query string) (*model.RefreshToken, error) {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to get refresh token by id")

	token := &model.RefreshToken{}
	err := q.QueryRowContext(ctx, query, id).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt, &token.RevokedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Info("Refresh token not found")
		} else {
			log.WithError(err).Error("Failed to execute get refresh token query")
		}
		return nil, err
	}
	return token, nil
}

// Revoke marks a token as revoked. Revoking an already revoked token is a no-op.
func (r *TokenRepository) Revoke(ctx context.Context, q Querier, id string) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to revoke a refresh token")

	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	res, err := q.ExecContext(ctx, query, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh token query")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Info("Refresh token was already revoked")
	}
	return nil
}

// RevokeAllForUser revokes every active refresh token of a user and returns
// how many rows changed.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, q Querier, userID string) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all refresh tokens for a user")

	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := q.ExecContext(ctx, query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke refresh tokens query")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

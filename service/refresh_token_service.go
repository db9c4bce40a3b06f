package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RefreshTokenOptions controls issuance and the reaction to replayed tokens.
type RefreshTokenOptions struct {
	TTL time.Duration
	// RevokeFamilyOnReuse revokes every active token of a user when one of
	// their rotated tokens is presented again with a valid secret.
	RevokeFamilyOnReuse bool
}

// RefreshTokenService issues, rotates and revokes opaque refresh tokens.
// Rotation is single use: each row is locked, checked and consumed inside one
// transaction, so concurrent attempts on the same token serialise on the row
// lock and only the first one succeeds.
type RefreshTokenService struct {
	db        *sql.DB
	tokenRepo repository.ITokenRepository
	userRepo  repository.IUserRepository
	hasher    Hasher
	opts      RefreshTokenOptions
	now       func() time.Time
}

func NewRefreshTokenService(db *sql.DB, tokenRepo repository.ITokenRepository, userRepo repository.IUserRepository, hasher Hasher, opts RefreshTokenOptions) *RefreshTokenService {
	return &RefreshTokenService{
		db:        db,
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		hasher:    hasher,
		opts:      opts,
		now:       time.Now,
	}
}

// Issue creates a token for userID that expires after the configured TTL.
func (s *RefreshTokenService) Issue(ctx context.Context, q repository.Querier, userID string) (*IssuedToken, error) {
	return s.IssueWithExpiry(ctx, q, userID, s.now().Add(s.opts.TTL))
}

// IssueWithExpiry creates a token row with an explicit expiry and returns the
// external token string.
func (s *RefreshTokenService) IssueWithExpiry(ctx context.Context, q repository.Querier, userID string, expiresAt time.Time) (*IssuedToken, error) {
	secret, err := newRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("could not generate refresh token secret: %w", err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("could not hash refresh token secret: %w", err)
	}

	token := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	}
	if err := s.tokenRepo.Create(ctx, q, token); err != nil {
		return nil, fmt.Errorf("could not store refresh token: %w", err)
	}

	return &IssuedToken{
		ID:        token.ID,
		Secret:    secret,
		Value:     BuildRefreshToken(token.ID, secret),
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// RevokeAllForUser revokes every active token of userID.
func (s *RefreshTokenService) RevokeAllForUser(ctx context.Context, q repository.Querier, userID string) error {
	n, err := s.tokenRepo.RevokeAllForUser(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("could not revoke refresh tokens: %w", err)
	}
	if n > 0 {
		logger.Log.WithFields(logrus.Fields{"user_id": userID, "revoked": n}).Info("Revoked previous refresh tokens")
	}
	return nil
}

// Rotate consumes refreshToken and returns its owner with a replacement token.
//
// Rejections that carry a security side effect (a revoked row, or the whole
// family on reuse) commit that side effect before returning the typed error.
// Any other failure rolls the transaction back.
func (s *RefreshTokenService) Rotate(ctx context.Context, refreshToken string) (*model.User, *IssuedToken, error) {
	id, secret, err := ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Log.WithField("token_id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	stored, err := s.tokenRepo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("could not load refresh token: %w", err)
	}
	log = log.WithField("user_id", stored.UserID)

	switch stored.State(s.now()) {
	case model.TokenRevoked:
		// A wrong secret only proves knowledge of the id, which is not secret.
		if !s.hasher.Verify(secret, stored.TokenHash) {
			return nil, nil, ErrInvalidToken
		}
		log.Warn("Consumed refresh token presented again")
		if !s.opts.RevokeFamilyOnReuse {
			return nil, nil, ErrTokenReused
		}
		if err := s.RevokeAllForUser(ctx, tx, stored.UserID); err != nil {
			return nil, nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, nil, fmt.Errorf("could not commit transaction: %w", err)
		}
		return nil, nil, ErrTokenReused
	case model.TokenExpired:
		log.Info("Expired refresh token presented")
		return nil, nil, s.reject(ctx, tx, stored.ID, ErrTokenExpired)
	}

	if !s.hasher.Verify(secret, stored.TokenHash) {
		log.Warn("Refresh token secret mismatch")
		return nil, nil, s.reject(ctx, tx, stored.ID, ErrInvalidToken)
	}

	user, err := s.userRepo.GetByID(ctx, tx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Refresh token belongs to a user that no longer exists")
			return nil, nil, s.reject(ctx, tx, stored.ID, ErrInvalidToken)
		}
		return nil, nil, fmt.Errorf("could not load user: %w", err)
	}

	if err := s.tokenRepo.Revoke(ctx, tx, stored.ID); err != nil {
		return nil, nil, fmt.Errorf("could not revoke refresh token: %w", err)
	}
	issued, err := s.Issue(ctx, tx, stored.UserID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	log.WithField("new_token_id", issued.ID).Info("Refresh token rotated")
	return user, issued, nil
}

// Revoke invalidates refreshToken on logout. An already revoked token is
// accepted silently; an unknown id or wrong secret is ErrInvalidToken.
func (s *RefreshTokenService) Revoke(ctx context.Context, refreshToken string) error {
	id, secret, err := ParseRefreshToken(refreshToken)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	stored, err := s.tokenRepo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("could not load refresh token: %w", err)
	}
	if stored.RevokedAt.Valid {
		return nil
	}
	if !s.hasher.Verify(secret, stored.TokenHash) {
		return ErrInvalidToken
	}

	if err := s.tokenRepo.Revoke(ctx, tx, stored.ID); err != nil {
		return fmt.Errorf("could not revoke refresh token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"token_id": id, "user_id": stored.UserID}).Info("Refresh token revoked")
	return nil
}

// reject revokes the presented row, commits, and returns cause.
func (s *RefreshTokenService) reject(ctx context.Context, tx *sql.Tx, id string, cause error) error {
	if err := s.tokenRepo.Revoke(ctx, tx, id); err != nil {
		return fmt.Errorf("could not revoke refresh token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return cause
}

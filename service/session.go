package service

import (
	"context"
	"go-auth-api/model"
	"go-auth-api/repository"
)

// RefreshIssuer creates refresh tokens on behalf of the session builder.
type RefreshIssuer interface {
	Issue(ctx context.Context, q repository.Querier, userID string) (*IssuedToken, error)
}

// SessionBuilder pairs an access token with a refresh token for a user.
type SessionBuilder struct {
	tokens  *AccessTokenManager
	refresh RefreshIssuer
}

func NewSessionBuilder(tokens *AccessTokenManager, refresh RefreshIssuer) *SessionBuilder {
	return &SessionBuilder{tokens: tokens, refresh: refresh}
}

// Build signs an access token for user. When refresh is nil a new refresh
// token is issued on q; otherwise the given one is passed through.
func (b *SessionBuilder) Build(ctx context.Context, q repository.Querier, user *model.User, refresh *IssuedToken) (*model.Session, error) {
	accessToken, _, err := b.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	if refresh == nil {
		refresh, err = b.refresh.Issue(ctx, q, user.ID)
		if err != nil {
			return nil, err
		}
	}

	return &model.Session{
		AccessToken:           accessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(b.tokens.TTL().Seconds()),
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		User:                  user.Public(),
		Permissions:           PermissionsForRole(user.Role),
	}, nil
}

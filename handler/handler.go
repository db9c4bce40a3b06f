package handler

import (
	"context"
	"go-auth-api/model"
)

// AuthService is the subset of service.AuthService the handlers call.
type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.Session, error)
	Login(ctx context.Context, email, password string) (*model.Session, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*model.Session, error)
	GoogleAuthURL(state string) (string, error)
	LoginWithGoogleCode(ctx context.Context, code string) (*model.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*model.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	Introspect(ctx context.Context, accessToken string) (*model.TokenIntrospection, error)
}

// UserService is the subset of service.UserService the handlers call.
type UserService interface {
	Profile(ctx context.Context, userID string) (*model.PublicUser, error)
	GetUser(ctx context.Context, requesterID string, requesterRole model.Role, userID string) (*model.PublicUser, error)
	ListUsers(ctx context.Context) ([]model.PublicUser, error)
	UpdateUserRole(ctx context.Context, userID string, role model.Role) error
}

// TokenValidator verifies bearer access tokens.
type TokenValidator interface {
	Validate(tokenString string) (*model.AppClaims, error)
}

package handler

import (
	"context"
	"go-auth-api/logger"
	"go-auth-api/model"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) session(args mock.Arguments) (*model.Session, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.Session, error) {
	return m.session(m.Called(req))
}
func (m *MockAuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	return m.session(m.Called(email, password))
}
func (m *MockAuthService) LoginWithGoogle(ctx context.Context, idToken string) (*model.Session, error) {
	return m.session(m.Called(idToken))
}
func (m *MockAuthService) GoogleAuthURL(state string) (string, error) {
	args := m.Called(state)
	return args.String(0), args.Error(1)
}
func (m *MockAuthService) LoginWithGoogleCode(ctx context.Context, code string) (*model.Session, error) {
	return m.session(m.Called(code))
}
func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	return m.session(m.Called(refreshToken))
}
func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(refreshToken).Error(0)
}
func (m *MockAuthService) Introspect(ctx context.Context, accessToken string) (*model.TokenIntrospection, error) {
	args := m.Called(accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenIntrospection), args.Error(1)
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) user(args mock.Arguments) (*model.PublicUser, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublicUser), args.Error(1)
}

func (m *MockUserService) Profile(ctx context.Context, userID string) (*model.PublicUser, error) {
	return m.user(m.Called(userID))
}
func (m *MockUserService) GetUser(ctx context.Context, requesterID string, requesterRole model.Role, userID string) (*model.PublicUser, error) {
	return m.user(m.Called(requesterID, requesterRole, userID))
}
func (m *MockUserService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublicUser), args.Error(1)
}
func (m *MockUserService) UpdateUserRole(ctx context.Context, userID string, role model.Role) error {
	return m.Called(userID, role).Error(0)
}

// withIdentity returns r as AuthMiddleware would pass it on.
func withIdentity(r *http.Request, userID string, role model.Role) *http.Request {
	ctx := context.WithValue(r.Context(), UserIDKey, userID)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return r.WithContext(ctx)
}

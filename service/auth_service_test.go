package service

import (
	"context"
	"database/sql"
	"go-auth-api/model"
	"go-auth-api/repository"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	dbMock    sqlmock.Sqlmock
	tokenRepo *MockTokenRepository
	userRepo  *MockUserRepository
	passwords *BcryptHasher
	tokens    *AccessTokenManager
	google    *fakeGoogleVerifier
	oauth     *fakeCodeExchanger
	service   *AuthService
}

func newAuthFixture(t *testing.T, opts AuthOptions, withGoogle bool) *authFixture {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &authFixture{
		dbMock:    dbMock,
		tokenRepo: new(MockTokenRepository),
		userRepo:  new(MockUserRepository),
		passwords: newTestHasher(),
		tokens:    newTestTokenManager(),
	}
	refresh := NewRefreshTokenService(db, f.tokenRepo, f.userRepo, newTestHasher(), RefreshTokenOptions{TTL: time.Hour, RevokeFamilyOnReuse: true})
	deps := AuthDeps{
		DB:        db,
		UserRepo:  f.userRepo,
		Refresh:   refresh,
		Sessions:  NewSessionBuilder(f.tokens, refresh),
		Tokens:    f.tokens,
		Passwords: f.passwords,
		Users:     NewUserService(db, f.userRepo, nil),
	}
	if withGoogle {
		f.google = &fakeGoogleVerifier{identities: map[string]*GoogleIdentity{}}
		f.oauth = &fakeCodeExchanger{codes: map[string]string{}}
		deps.Google = f.google
		deps.GoogleOAuth = f.oauth
	}
	f.service = NewAuthService(deps, opts)
	return f
}

func (f *authFixture) assertExpectations(t *testing.T) {
	f.tokenRepo.AssertExpectations(t)
	f.userRepo.AssertExpectations(t)
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
}

func (f *authFixture) localUser(t *testing.T, email, password string) *model.User {
	hash, err := f.passwords.Hash(password)
	require.NoError(t, err)
	return &model.User{
		ID:           "user-1",
		Name:         "Alice",
		Email:        email,
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Role:         model.RoleClient,
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	req := model.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "S3cret!pass",
		ConfirmPassword: "S3cret!pass",
		DateOfBirth:     "1990-04-02",
		Role:            "backlog",
	}

	t.Run("success issues a session", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{RevokeOthersOnSignIn: true}, false)

		f.userRepo.On("GetByEmail", mock.Anything, req.Email).Return(nil, sql.ErrNoRows).Once()
		f.dbMock.ExpectBegin()
		f.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Email == req.Email &&
				u.Role == model.RoleClient &&
				u.DateOfBirth.Valid &&
				u.PasswordHash.Valid && u.PasswordHash.String != req.Password
		})).Return(nil).Once()
		f.tokenRepo.On("RevokeAllForUser", mock.Anything, mock.AnythingOfType("string")).Return(int64(0), nil).Once()
		f.tokenRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil).Once()
		f.dbMock.ExpectCommit()

		session, err := f.service.Register(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, req.Email, session.User.Email)
		assert.Equal(t, model.RoleClient, session.User.Role, "requested role is ignored unless allowed")
		if assert.NotNil(t, session.User.DateOfBirth) {
			assert.Equal(t, "1990-04-02", *session.User.DateOfBirth)
		}
		f.assertExpectations(t)
	})

	t.Run("requested role honoured when allowed", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{AllowRoleOnRegister: true}, false)

		f.userRepo.On("GetByEmail", mock.Anything, req.Email).Return(nil, sql.ErrNoRows).Once()
		f.dbMock.ExpectBegin()
		f.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Role == model.RoleAdmin
		})).Return(nil).Once()
		f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.dbMock.ExpectCommit()

		session, err := f.service.Register(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, session.User.Role)
		assert.Contains(t, session.Permissions, "users:write")
		f.assertExpectations(t)
	})

	t.Run("email already registered", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)
		f.userRepo.On("GetByEmail", mock.Anything, req.Email).Return(&model.User{ID: "other"}, nil).Once()

		_, err := f.service.Register(ctx, req)

		assert.ErrorIs(t, err, ErrEmailTaken)
		f.assertExpectations(t)
	})

	t.Run("unique violation from a concurrent insert", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)
		f.userRepo.On("GetByEmail", mock.Anything, req.Email).Return(nil, sql.ErrNoRows).Once()
		f.dbMock.ExpectBegin()
		f.userRepo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateEmail).Once()
		f.dbMock.ExpectRollback()

		_, err := f.service.Register(ctx, req)

		assert.ErrorIs(t, err, ErrEmailTaken)
		f.assertExpectations(t)
	})

	t.Run("invalid date of birth", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)
		bad := req
		bad.DateOfBirth = "1990-13-40"

		_, err := f.service.Register(ctx, bad)

		assert.ErrorIs(t, err, ErrInvalidDateOfBirth)
		f.assertExpectations(t)
	})

	t.Run("weak passwords are rejected before any lookup", func(t *testing.T) {
		for _, password := range []string{
			"short1!",
			"alllowercase1!",
			"NoDigitsHere!",
			"NoSpecial123",
			strings.Repeat("é", 40) + "aA1!",
		} {
			f := newAuthFixture(t, AuthOptions{}, false)
			weak := req
			weak.Password = password
			weak.ConfirmPassword = password

			_, err := f.service.Register(ctx, weak)

			assert.ErrorIs(t, err, ErrWeakPassword, password)
			f.assertExpectations(t)
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success revokes previous sessions", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{RevokeOthersOnSignIn: true}, false)
		user := f.localUser(t, "alice@example.com", "s3cret!")

		f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
		f.dbMock.ExpectBegin()
		f.tokenRepo.On("RevokeAllForUser", mock.Anything, user.ID).Return(int64(2), nil).Once()
		f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.dbMock.ExpectCommit()

		session, err := f.service.Login(ctx, user.Email, "s3cret!")

		require.NoError(t, err)
		assert.Equal(t, user.ID, session.User.ID)
		claims, err := f.tokens.Validate(session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.Subject)
		f.assertExpectations(t)
	})

	t.Run("keeps other sessions when configured", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)
		user := f.localUser(t, "alice@example.com", "s3cret!")

		f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
		f.dbMock.ExpectBegin()
		f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.dbMock.ExpectCommit()

		_, err := f.service.Login(ctx, user.Email, "s3cret!")

		require.NoError(t, err)
		f.tokenRepo.AssertNotCalled(t, "RevokeAllForUser", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)
		user := f.localUser(t, "alice@example.com", "s3cret!")
		f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

		_, err := f.service.Login(ctx, user.Email, "wrong")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		f.assertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)
		f.userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, sql.ErrNoRows).Once()

		_, err := f.service.Login(ctx, "ghost@example.com", "whatever")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		f.assertExpectations(t)
	})

	t.Run("google-only account", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)
		user := &model.User{ID: "g1", Email: "g@example.com", GoogleID: sql.NullString{String: "sub", Valid: true}, Role: model.RoleClient}
		f.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

		_, err := f.service.Login(ctx, user.Email, "")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
		f.assertExpectations(t)
	})
}

func TestAuthService_LoginWithGoogle(t *testing.T) {
	ctx := context.Background()
	identity := &GoogleIdentity{Subject: "google-sub", Email: "alice@example.com", Name: "Alice"}

	t.Run("not configured", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, false)

		_, err := f.service.LoginWithGoogle(ctx, "token")
		assert.ErrorIs(t, err, ErrGoogleNotConfigured)

		_, err = f.service.GoogleAuthURL("state")
		assert.ErrorIs(t, err, ErrGoogleNotConfigured)

		_, err = f.service.LoginWithGoogleCode(ctx, "code")
		assert.ErrorIs(t, err, ErrGoogleNotConfigured)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, true)

		_, err := f.service.LoginWithGoogle(ctx, "forged")

		assert.ErrorIs(t, err, ErrInvalidGoogleToken)
		f.assertExpectations(t)
	})

	t.Run("creates a new account", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{RevokeOthersOnSignIn: true}, true)
		f.google.identities["id-token"] = identity

		f.dbMock.ExpectBegin()
		f.userRepo.On("GetByGoogleID", mock.Anything, identity.Subject).Return(nil, sql.ErrNoRows).Once()
		f.userRepo.On("GetByEmail", mock.Anything, identity.Email).Return(nil, sql.ErrNoRows).Once()
		f.userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.GoogleID.String == identity.Subject && !u.PasswordHash.Valid && u.Role == model.RoleClient
		})).Return(nil).Once()
		f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.dbMock.ExpectCommit()

		session, err := f.service.LoginWithGoogle(ctx, "id-token")

		require.NoError(t, err)
		assert.Equal(t, "Alice", session.User.Name)
		f.tokenRepo.AssertNotCalled(t, "RevokeAllForUser", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("concurrent first sign-in loses the insert", func(t *testing.T) {
		for _, dup := range []error{repository.ErrDuplicateEmail, repository.ErrDuplicateGoogleID} {
			f := newAuthFixture(t, AuthOptions{}, true)
			f.google.identities["id-token"] = identity

			f.dbMock.ExpectBegin()
			f.userRepo.On("GetByGoogleID", mock.Anything, identity.Subject).Return(nil, sql.ErrNoRows).Once()
			f.userRepo.On("GetByEmail", mock.Anything, identity.Email).Return(nil, sql.ErrNoRows).Once()
			f.userRepo.On("Create", mock.Anything, mock.Anything).Return(dup).Once()
			f.dbMock.ExpectRollback()

			_, err := f.service.LoginWithGoogle(ctx, "id-token")

			assert.ErrorIs(t, err, ErrEmailTaken)
			f.tokenRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.assertExpectations(t)
		}
	})

	t.Run("returns the linked account", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, true)
		f.google.identities["id-token"] = identity
		existing := &model.User{ID: "user-1", Email: identity.Email, GoogleID: sql.NullString{String: identity.Subject, Valid: true}, Role: model.RoleAdmin}

		f.dbMock.ExpectBegin()
		f.userRepo.On("GetByGoogleID", mock.Anything, identity.Subject).Return(existing, nil).Once()
		f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.dbMock.ExpectCommit()

		session, err := f.service.LoginWithGoogle(ctx, "id-token")

		require.NoError(t, err)
		assert.Equal(t, "user-1", session.User.ID)
		assert.Equal(t, model.RoleAdmin, session.User.Role)
		f.assertExpectations(t)
	})

	t.Run("links to a local account with the same email", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, true)
		f.google.identities["id-token"] = identity
		local := f.localUser(t, identity.Email, "s3cret!")
		linked := *local
		linked.GoogleID = sql.NullString{String: identity.Subject, Valid: true}

		f.dbMock.ExpectBegin()
		f.userRepo.On("GetByGoogleID", mock.Anything, identity.Subject).Return(nil, sql.ErrNoRows).Once()
		f.userRepo.On("GetByEmail", mock.Anything, identity.Email).Return(local, nil).Once()
		f.userRepo.On("LinkGoogleAccount", mock.Anything, local.ID, identity.Subject, "Alice").Return(&linked, nil).Once()
		f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.dbMock.ExpectCommit()

		session, err := f.service.LoginWithGoogle(ctx, "id-token")

		require.NoError(t, err)
		assert.Equal(t, local.ID, session.User.ID)
		f.assertExpectations(t)
	})

	t.Run("email owned by another google account", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, true)
		f.google.identities["id-token"] = identity
		other := &model.User{ID: "user-2", Email: identity.Email, GoogleID: sql.NullString{String: "different-sub", Valid: true}}

		f.dbMock.ExpectBegin()
		f.userRepo.On("GetByGoogleID", mock.Anything, identity.Subject).Return(nil, sql.ErrNoRows).Once()
		f.userRepo.On("GetByEmail", mock.Anything, identity.Email).Return(other, nil).Once()
		f.dbMock.ExpectRollback()

		_, err := f.service.LoginWithGoogle(ctx, "id-token")

		assert.ErrorIs(t, err, ErrEmailTaken)
		f.assertExpectations(t)
	})

	t.Run("code flow", func(t *testing.T) {
		f := newAuthFixture(t, AuthOptions{}, true)
		f.google.identities["id-token"] = identity
		f.oauth.codes["auth-code"] = "id-token"
		existing := &model.User{ID: "user-1", Email: identity.Email, Role: model.RoleClient}

		url, err := f.service.GoogleAuthURL("xyz")
		require.NoError(t, err)
		assert.Contains(t, url, "state=xyz")

		f.dbMock.ExpectBegin()
		f.userRepo.On("GetByGoogleID", mock.Anything, identity.Subject).Return(existing, nil).Once()
		f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.dbMock.ExpectCommit()

		session, err := f.service.LoginWithGoogleCode(ctx, "auth-code")
		require.NoError(t, err)
		assert.Equal(t, "user-1", session.User.ID)

		_, err = f.service.LoginWithGoogleCode(ctx, "unknown-code")
		assert.ErrorIs(t, err, ErrInvalidGoogleToken)
		f.assertExpectations(t)
	})
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{}, false)
	user := &model.User{ID: "user-1", Email: "alice@example.com", Role: model.RoleClient}
	value, row := storedToken(t, user.ID, time.Now().Add(time.Hour))

	f.dbMock.ExpectBegin()
	f.tokenRepo.On("FindByIDForUpdate", mock.Anything, row.ID).Return(row, nil).Once()
	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.tokenRepo.On("Revoke", mock.Anything, row.ID).Return(nil).Once()
	f.tokenRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.dbMock.ExpectCommit()

	session, err := f.service.Refresh(ctx, value)
	require.NoError(t, err)
	assert.NotEqual(t, value, session.RefreshToken)
	assert.Equal(t, user.ID, session.User.ID)

	assert.ErrorIs(t, f.service.Logout(ctx, "garbage"), ErrInvalidToken)
	f.assertExpectations(t)
}

func TestAuthService_Introspect(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{}, false)
	user := &model.User{ID: "user-1", Name: "Alice", Email: "alice@example.com", Role: model.RoleAdmin}
	token, expiresAt, err := f.tokens.Generate(user)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()

		result, err := f.service.Introspect(ctx, token)

		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, "Alice", result.User.Name)
		assert.Equal(t, user.ID, result.Claims.Subject)
		assert.Equal(t, model.RoleAdmin, result.Claims.Role)
		assert.WithinDuration(t, expiresAt, result.Claims.ExpiresAt, time.Second)
	})

	t.Run("subject deleted", func(t *testing.T) {
		f.userRepo.On("GetByID", mock.Anything, user.ID).Return(nil, sql.ErrNoRows).Once()

		_, err := f.service.Introspect(ctx, token)

		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := f.service.Introspect(ctx, token+"x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthOptions are the policy switches of the sign-in flows.
type AuthOptions struct {
	AllowRoleOnRegister  bool
	RevokeOthersOnSignIn bool
}

// AuthDeps groups the collaborators of AuthService. Google and GoogleOAuth
// are nil when Google sign-in is not configured.
type AuthDeps struct {
	DB          *sql.DB
	UserRepo    repository.IUserRepository
	Refresh     *RefreshTokenService
	Sessions    *SessionBuilder
	Tokens      *AccessTokenManager
	Passwords   Hasher
	Users       *UserService
	Google      GoogleVerifier
	GoogleOAuth GoogleCodeExchanger
}

// AuthService implements registration, sign-in, refresh, logout and token
// introspection.
type AuthService struct {
	db          *sql.DB
	userRepo    repository.IUserRepository
	refresh     *RefreshTokenService
	sessions    *SessionBuilder
	tokens      *AccessTokenManager
	passwords   Hasher
	users       *UserService
	google      GoogleVerifier
	googleOAuth GoogleCodeExchanger
	opts        AuthOptions
}

func NewAuthService(deps AuthDeps, opts AuthOptions) *AuthService {
	return &AuthService{
		db:          deps.DB,
		userRepo:    deps.UserRepo,
		refresh:     deps.Refresh,
		sessions:    deps.Sessions,
		tokens:      deps.Tokens,
		passwords:   deps.Passwords,
		users:       deps.Users,
		google:      deps.Google,
		googleOAuth: deps.GoogleOAuth,
		opts:        opts,
	}
}

// Register creates a local account and signs it in.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.Session, error) {
	if !common.StrongPassword(req.Password) {
		return nil, ErrWeakPassword
	}

	role := model.RoleClient
	if s.opts.AllowRoleOnRegister && req.Role != "" {
		parsed, err := model.ParseRole(req.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		role = parsed
	}

	var dob sql.NullTime
	if req.DateOfBirth != "" {
		t, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			return nil, ErrInvalidDateOfBirth
		}
		dob = sql.NullTime{Time: t, Valid: true}
	}

	if _, err := s.userRepo.GetByEmail(ctx, s.db, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("could not check email: %w", err)
	}

	passwordHash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: sql.NullString{String: passwordHash, Valid: true},
		DateOfBirth:  dob,
		Role:         role,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	session, err := s.signIn(ctx, tx, user, true)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return session, nil
}

// Login authenticates with email and password. Unknown emails, accounts
// without a password and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("could not load user: %w", err)
	}
	if !user.HasPassword() || !s.passwords.Verify(password, user.PasswordHash.String) {
		return nil, ErrInvalidCredentials
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	session, err := s.signIn(ctx, tx, user, true)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	return session, nil
}

// LoginWithGoogle verifies a Google ID token, then finds, links or creates
// the matching account inside a single transaction.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*model.Session, error) {
	if s.google == nil {
		return nil, ErrGoogleNotConfigured
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGoogleToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}
	if identity.Subject == "" || identity.Email == "" {
		return nil, ErrInvalidGoogleToken
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := s.findOrCreateGoogleUser(ctx, tx, identity)
	if err != nil {
		return nil, err
	}

	session, err := s.signIn(ctx, tx, user, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	s.users.InvalidateProfile(ctx, user.ID)
	logger.Log.WithField("user_id", user.ID).Info("User logged in with google")
	return session, nil
}

func (s *AuthService) findOrCreateGoogleUser(ctx context.Context, tx *sql.Tx, identity *GoogleIdentity) (*model.User, error) {
	user, err := s.userRepo.GetByGoogleID(ctx, tx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("could not load user by google id: %w", err)
	}

	existing, err := s.userRepo.GetByEmail(ctx, tx, identity.Email)
	switch {
	case err == nil:
		if existing.GoogleID.Valid && existing.GoogleID.String != identity.Subject {
			return nil, ErrEmailTaken
		}
		linked, err := s.userRepo.LinkGoogleAccount(ctx, tx, existing.ID, identity.Subject, identity.DisplayName())
		if err != nil {
			return nil, fmt.Errorf("could not link google account: %w", err)
		}
		logger.Log.WithField("user_id", linked.ID).Info("Linked google account to existing user")
		return linked, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("could not load user by email: %w", err)
	}

	user = &model.User{
		ID:       uuid.NewString(),
		Name:     identity.DisplayName(),
		Email:    identity.Email,
		GoogleID: sql.NullString{String: identity.Subject, Valid: true},
		Role:     model.RoleClient,
	}
	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateGoogleID) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("could not create google user: %w", err)
	}
	return user, nil
}

// GoogleAuthURL returns the consent page URL for the OAuth code flow.
func (s *AuthService) GoogleAuthURL(state string) (string, error) {
	if s.googleOAuth == nil {
		return "", ErrGoogleNotConfigured
	}
	return s.googleOAuth.AuthCodeURL(state), nil
}

// LoginWithGoogleCode completes the OAuth code flow.
func (s *AuthService) LoginWithGoogleCode(ctx context.Context, code string) (*model.Session, error) {
	if s.googleOAuth == nil {
		return nil, ErrGoogleNotConfigured
	}
	idToken, err := s.googleOAuth.ExchangeIDToken(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.LoginWithGoogle(ctx, idToken)
}

// Refresh rotates refreshToken and returns a new session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	user, rotated, err := s.refresh.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.sessions.Build(ctx, s.db, user, rotated)
}

// Logout revokes refreshToken.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

// Introspect verifies an access token and resolves its subject.
func (s *AuthService) Introspect(ctx context.Context, accessToken string) (*model.TokenIntrospection, error) {
	claims, err := s.tokens.Validate(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Profile(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	result := &model.TokenIntrospection{
		Valid: true,
		User:  *user,
		Claims: model.IntrospectClaim{
			Subject: claims.Subject,
			Email:   claims.Email,
			Role:    claims.Role,
			Issuer:  claims.Issuer,
		},
	}
	if claims.IssuedAt != nil {
		result.Claims.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.Claims.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

// signIn issues a refresh token on tx, optionally revoking the user's other
// sessions first, and builds the response session.
func (s *AuthService) signIn(ctx context.Context, tx *sql.Tx, user *model.User, revokeOthers bool) (*model.Session, error) {
	if revokeOthers && s.opts.RevokeOthersOnSignIn {
		if err := s.refresh.RevokeAllForUser(ctx, tx, user.ID); err != nil {
			return nil, err
		}
	}
	issued, err := s.refresh.Issue(ctx, tx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.sessions.Build(ctx, tx, user, issued)
}

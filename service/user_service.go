package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-auth-api/model"
	"go-auth-api/repository"
)

// UserService handles user-related business logic.
type UserService struct {
	db       *sql.DB
	userRepo repository.IUserRepository
	cache    *ProfileCache
}

// NewUserService creates a new UserService. cache may be nil.
func NewUserService(db *sql.DB, userRepo repository.IUserRepository, cache *ProfileCache) *UserService {
	return &UserService{db: db, userRepo: userRepo, cache: cache}
}

// Profile returns the public view of a user, served from cache when possible.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.PublicUser, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	user, err := s.userRepo.GetByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not load user: %w", err)
	}

	public := user.Public()
	s.cache.Set(ctx, public)
	return &public, nil
}

// GetUser lets admins read any profile and everyone else only their own.
func (s *UserService) GetUser(ctx context.Context, requesterID string, requesterRole model.Role, userID string) (*model.PublicUser, error) {
	if requesterRole != model.RoleAdmin && requesterID != userID {
		return nil, ErrPermissionDenied
	}
	return s.Profile(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.userRepo.List(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	public := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return public, nil
}

// UpdateUserRole validates the role and calls the repository to update it.
func (s *UserService) UpdateUserRole(ctx context.Context, userID string, newRole model.Role) error {
	if !newRole.Valid() {
		return ErrInvalidRole
	}

	if err := s.userRepo.UpdateRole(ctx, s.db, userID, newRole); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("could not update role: %w", err)
	}

	s.cache.Invalidate(ctx, userID)
	return nil
}

// InvalidateProfile drops any cached profile of userID.
func (s *UserService) InvalidateProfile(ctx context.Context, userID string) {
	s.cache.Invalidate(ctx, userID)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"go-auth-api/model"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*ProfileCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewProfileCache(client, time.Minute), mr
}

func newTestUserService(t *testing.T, cache *ProfileCache) (*UserService, *MockUserRepository) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := new(MockUserRepository)
	return NewUserService(db, repo, cache), repo
}

func TestUserService_Profile(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: model.RoleClient}

	t.Run("cache aside", func(t *testing.T) {
		cache, mr := newTestCache(t)
		svc, repo := newTestUserService(t, cache)
		repo.On("GetByID", mock.Anything, "u1").Return(user, nil).Once()

		first, err := svc.Profile(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, mr.Exists("user:profile:u1"))

		second, err := svc.Profile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		repo.AssertNumberOfCalls(t, "GetByID", 1)
	})

	t.Run("works without a cache", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)
		repo.On("GetByID", mock.Anything, "u1").Return(user, nil).Twice()

		_, err := svc.Profile(ctx, "u1")
		require.NoError(t, err)
		_, err = svc.Profile(ctx, "u1")
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("falls back to the database when redis is down", func(t *testing.T) {
		cache, mr := newTestCache(t)
		mr.Close()
		svc, repo := newTestUserService(t, cache)
		repo.On("GetByID", mock.Anything, "u1").Return(user, nil).Once()

		got, err := svc.Profile(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)
		repo.On("GetByID", mock.Anything, "ghost").Return(nil, sql.ErrNoRows).Once()

		_, err := svc.Profile(ctx, "ghost")

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()
	user := &model.User{ID: "u2", Name: "Bob", Role: model.RoleClient}

	t.Run("self", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)
		repo.On("GetByID", mock.Anything, "u2").Return(user, nil).Once()

		got, err := svc.GetUser(ctx, "u2", model.RoleClient, "u2")
		require.NoError(t, err)
		assert.Equal(t, "Bob", got.Name)
	})

	t.Run("admin reads anyone", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)
		repo.On("GetByID", mock.Anything, "u2").Return(user, nil).Once()

		_, err := svc.GetUser(ctx, "admin-1", model.RoleAdmin, "u2")
		assert.NoError(t, err)
	})

	t.Run("client reading someone else", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)

		_, err := svc.GetUser(ctx, "u1", model.RoleClient, "u2")

		assert.ErrorIs(t, err, ErrPermissionDenied)
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestUserService_ListUsers(t *testing.T) {
	svc, repo := newTestUserService(t, nil)
	repo.On("List", mock.Anything).Return([]*model.User{
		{ID: "u1", Name: "Alice", Role: model.RoleAdmin},
		{ID: "u2", Name: "Bob", Role: model.RoleClient},
	}, nil).Once()

	users, err := svc.ListUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[1].Name)
}

func TestUserService_UpdateUserRole(t *testing.T) {
	ctx := context.Background()

	t.Run("success invalidates the cached profile", func(t *testing.T) {
		cache, mr := newTestCache(t)
		require.NoError(t, mr.Set("user:profile:u1", `{"id":"u1"}`))
		svc, repo := newTestUserService(t, cache)
		repo.On("UpdateRole", mock.Anything, "u1", model.RoleAdmin).Return(nil).Once()

		err := svc.UpdateUserRole(ctx, "u1", model.RoleAdmin)

		assert.NoError(t, err)
		assert.False(t, mr.Exists("user:profile:u1"))
		repo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)
		expectedError := errors.New("database error")
		repo.On("UpdateRole", mock.Anything, "u2", model.RoleClient).Return(expectedError).Once()

		err := svc.UpdateUserRole(ctx, "u2", model.RoleClient)

		assert.ErrorIs(t, err, expectedError)
		repo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)
		repo.On("UpdateRole", mock.Anything, "ghost", model.RoleClient).Return(sql.ErrNoRows).Once()

		assert.ErrorIs(t, svc.UpdateUserRole(ctx, "ghost", model.RoleClient), ErrUserNotFound)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc, repo := newTestUserService(t, nil)

		err := svc.UpdateUserRole(ctx, "u3", "invalid_role")

		assert.Error(t, err)
		assert.Equal(t, "invalid role specified", err.Error())
		repo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
	})
}

// file: service/cache.go

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient defines the contract for a cache client.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ProfileCache is a cache-aside store for public user profiles. A nil
// *ProfileCache is valid and caches nothing.
type ProfileCache struct {
	client ICacheClient
	ttl    time.Duration
}

func NewProfileCache(client ICacheClient, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func profileKey(userID string) string {
	return fmt.Sprintf("user:profile:%s", userID)
}

// Get reports a cache hit. Redis errors are logged and treated as a miss.
func (c *ProfileCache) Get(ctx context.Context, userID string) (*model.PublicUser, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).WithField("user_id", userID).Warn("Profile cache read failed")
		}
		return nil, false
	}
	var user model.PublicUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, false
	}
	return &user, true
}

func (c *ProfileCache) Set(ctx context.Context, user model.PublicUser) {
	if c == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, profileKey(user.ID), data, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Warn("Profile cache write failed")
	}
}

func (c *ProfileCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, profileKey(userID)).Err(); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Warn("Profile cache invalidation failed")
	}
}

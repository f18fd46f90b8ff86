package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notekeep/notekeep/internal/model"
)

const (
	userKeyPrefix = "user:"

	// DefaultUserTTL is the TTL for cached identities.
	DefaultUserTTL = 5 * time.Minute
)

// ErrCacheMiss is returned when the key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// UserCache stores resolved identities keyed by user id.
type UserCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewUserCache creates a UserCache on top of c. A non-positive ttl uses DefaultUserTTL.
func NewUserCache(c *Cache, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return &UserCache{cache: c, ttl: ttl}
}

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// GetUser returns the cached identity for id.
// Returns ErrCacheMiss if not found.
func (u *UserCache) GetUser(ctx context.Context, id int64) (*model.User, error) {
	cmd := u.cache.client.HGetAll(ctx, userKey(id))
	result, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	var cached model.CachedUser
	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	if cached.Username == "" {
		return nil, ErrCacheMiss
	}

	return cached.ToUser(id), nil
}

// SetUser caches the identity of user with the configured TTL.
func (u *UserCache) SetUser(ctx context.Context, user *model.User) error {
	key := userKey(user.ID)

	_, err := u.cache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, user.ToCachedUser())
		pipe.Expire(ctx, key, u.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis cache user failed: %w", err)
	}

	return nil
}

// DeleteUser evicts a cached identity.
func (u *UserCache) DeleteUser(ctx context.Context, id int64) error {
	if err := u.cache.client.Del(ctx, userKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete user failed: %w", err)
	}
	return nil
}

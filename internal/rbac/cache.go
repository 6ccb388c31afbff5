package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegis-admin/aegis/internal/shared"
)

// Cache holds per-user permission sets in the cache store. Entries are
// redis sets with TTL equal to the session lifetime.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Read returns the cached permission set for a user. An absent key yields
// an empty slice; callers treat that as a miss.
func (c *Cache) Read(ctx context.Context, userID int64) ([]string, error) {
	members, err := c.client.SMembers(ctx, shared.PermissionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("rbac: cache read: %w", err)
	}
	return members, nil
}

// Populate writes the permission set and applies the TTL. Concurrent
// populators for the same user overwrite each other with identical values;
// no single-flight guard is needed.
func (c *Cache) Populate(ctx context.Context, userID int64, permissions []string) error {
	if len(permissions) == 0 {
		return nil
	}
	key := shared.PermissionsKey(userID)
	members := make([]any, len(permissions))
	for i, p := range permissions {
		members[i] = p
	}
	pipe := c.client.Pipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rbac: cache populate: %w", err)
	}
	return nil
}

// InvalidateUsers deletes the cached sets for the given users. Absent keys
// are ignored.
func (c *Cache) InvalidateUsers(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = shared.PermissionsKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rbac: cache invalidate: %w", err)
	}
	return nil
}

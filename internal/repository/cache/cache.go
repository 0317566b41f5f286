package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gehalt"

// Cache is a Redis backed JSON cache with one version counter per user.
// Bumping a user's version makes every key built before the bump unreachable;
// stale entries expire through the TTL. A nil Cache, or one without a client,
// calls the loader directly.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func versionKey(userID uuid.UUID) string {
	return strings.Join([]string{keyPrefix, "version", userID.String()}, ":")
}

// Version returns the current cache version of a user, initialising when missing
func (c *Cache) Version(ctx context.Context, userID uuid.UUID) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	key := versionKey(userID)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX so concurrent initialisers agree on the first version
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a versioned cache key for the user
func (c *Cache) BuildKey(ctx context.Context, userID uuid.UUID, parts ...string) (string, error) {
	base := strings.Join(append([]string{keyPrefix, userID.String()}, parts...), ":")
	if !c.enabled() {
		return base, nil
	}
	ver, err := c.Version(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", base, ver), nil
}

// FetchJSON loads a cached value into dest or populates it using the loader
func (c *Cache) FetchJSON(ctx context.Context, userID uuid.UUID, name string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if !c.enabled() {
		return load(ctx, dest, loader)
	}

	key, err := c.BuildKey(ctx, userID, name)
	if err != nil {
		return err
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates every cached value of the user
func (c *Cache) Bump(ctx context.Context, userID uuid.UUID) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, versionKey(userID)).Err()
}

func load(ctx context.Context, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache keeps the data behind rendered routes in Redis so listings can
// be served without re-querying storage. Each route carries a version
// counter; Invalidate bumps it, orphaning every key minted for the stale
// route until the entries expire.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache instantiates the cache helper.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	return &PageCache{client: client, ttl: ttl}
}

// Key composes a cache key for the route with the current version.
func (c *PageCache) Key(ctx context.Context, route string, parts ...string) (string, error) {
	key := "view:" + route
	for _, p := range parts {
		key += ":" + p
	}
	if c == nil || c.client == nil {
		return key, nil
	}
	ver, err := c.version(ctx, route)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", key, ver), nil
}

// Fetch loads a cached value into dest or populates it using the loader.
func (c *PageCache) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("view: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return reencode(value, dest)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(raw, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(encoded, dest)
}

// Invalidate marks every cached entry for the route as stale.
func (c *PageCache) Invalidate(ctx context.Context, route string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(route)).Err()
}

func (c *PageCache) version(ctx context.Context, route string) (int64, error) {
	ver, err := c.client.Get(ctx, c.versionKey(route)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, c.versionKey(route), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *PageCache) versionKey(route string) string {
	return "view:ver:" + route
}

func reencode(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

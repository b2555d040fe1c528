// Package cache is the read-through cache in front of organization detail and
// roster reads. Mutations only ever invalidate keys; they never write values.
//
// Every key has a generation that Invalidate bumps. Readers take the
// generation before loading from the database and hand it to Fill, which
// drops the value if an invalidation happened in between.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by GetJSON when the key is absent.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	Version(ctx context.Context, key string) (int64, error)
	// Fill stores value under key unless key was invalidated after version
	// was read.
	Fill(ctx context.Context, key string, version int64, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

func OrganizationKey(orgID int64) string { return fmt.Sprintf("launchpad:org:%d", orgID) }
func RosterKey(orgID int64) string       { return fmt.Sprintf("launchpad:roster:%d", orgID) }

func generationKey(key string) string { return key + ":gen" }

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Close() error
}

type RedisCache struct {
	client redisClient
	ttl    time.Duration
}

func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func (c *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisCache) Fill(ctx context.Context, key string, version int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return err
	}
	current, err := c.Version(ctx, key)
	if err == nil && current == version {
		return nil
	}
	// invalidated while loading
	if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
		return errors.Join(err, delErr)
	}
	return err
}

// Invalidate bumps the generation of every key, then deletes the values.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		if err := c.client.Incr(ctx, generationKey(k)).Err(); err != nil {
			return err
		}
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// Nop never stores anything; every read is a miss.
type Nop struct{}

func (Nop) GetJSON(context.Context, string, any) error     { return ErrMiss }
func (Nop) Version(context.Context, string) (int64, error) { return 0, nil }
func (Nop) Fill(context.Context, string, int64, any) error { return nil }
func (Nop) Invalidate(context.Context, ...string) error    { return nil }

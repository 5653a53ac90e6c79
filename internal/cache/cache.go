// Package cache stores rendered view models in redis. Without a configured
// address it starts an embedded miniredis so single-node deployments need no
// extra service. A nil *Cache is valid and caches nothing.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/config"
)

type Cache struct {
	client *redis.Client
	mini   *miniredis.Miniredis
	ttl    time.Duration
	log    logrus.FieldLogger
}

// New connects to cfg.RedisAddr, or starts an embedded redis when it is empty.
// It returns nil when caching is disabled.
func New(ctx context.Context, cfg config.CacheConfig, log logrus.FieldLogger) (*Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	c := &Cache{ttl: cfg.TTL, log: log.WithField("component", "cache")}

	if cfg.RedisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded redis: %w", err)
		}
		c.mini = mr
		c.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		c.log.WithField("addr", mr.Addr()).Info("embedded redis started")
		return c, nil
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	c.log.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	return c, nil
}

func (c *Cache) IsEmbedded() bool {
	return c != nil && c.mini != nil
}

// GetJSON decodes the value at key into dst. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// InvalidatePrefix deletes every key starting with prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	if c == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", prefix, err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the client and stops the embedded server, if any.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	err := c.client.Close()
	if c.mini != nil {
		c.mini.Close()
	}
	return err
}

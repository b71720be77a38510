/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-backed cache for probed media durations so
// repeated builds do not re-run ffprobe on unchanged files.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultDurationTTL is how long a probed duration stays cached.
const DefaultDurationTTL = 30 * 24 * time.Hour

// KeyDuration prefixes duration entries; the suffix is a file fingerprint.
const KeyDuration = "bumptv:cache:duration:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DurationTTL time.Duration

	// If true, disable caching on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		DurationTTL:    DefaultDurationTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a cache. An unreachable Redis yields a disabled cache rather
// than an error; every lookup then misses.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) *Cache {
	logger = logger.With().Str("component", "cache").Logger()
	if cfg.DurationTTL <= 0 {
		cfg.DurationTTL = DefaultDurationTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis cache unavailable, probing without cache")
		_ = client.Close()
		return &Cache{logger: logger, config: cfg, disabled: true}
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return &Cache{client: client, logger: logger, config: cfg}
}

// Disabled returns a cache that never hits.
func Disabled(logger zerolog.Logger) *Cache {
	return &Cache{logger: logger, disabled: true}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// cachedDuration is the stored form of a probe result.
type cachedDuration struct {
	Seconds  float64   `json:"seconds"`
	ProbedAt time.Time `json:"probed_at"`
}

// GetDuration looks up a previously probed duration by file fingerprint.
func (c *Cache) GetDuration(ctx context.Context, fingerprint string) (time.Duration, bool) {
	if !c.IsAvailable() {
		return 0, false
	}

	data, err := c.client.Get(ctx, KeyDuration+fingerprint).Bytes()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		c.handleError(err, "get")
		return 0, false
	}

	var cd cachedDuration
	if err := json.Unmarshal(data, &cd); err != nil {
		c.logger.Debug().Err(err).Str("fingerprint", fingerprint).Msg("failed to unmarshal cached duration")
		return 0, false
	}
	if cd.Seconds <= 0 {
		return 0, false
	}

	return time.Duration(cd.Seconds * float64(time.Second)), true
}

// SetDuration stores a probed duration.
func (c *Cache) SetDuration(ctx context.Context, fingerprint string, d time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(cachedDuration{Seconds: d.Seconds(), ProbedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, KeyDuration+fingerprint, data, c.config.DurationTTL).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

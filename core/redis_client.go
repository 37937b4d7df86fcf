// Package core provides the shared infrastructure for evermem: structured
// logging, configuration, error taxonomy, and the Redis client wrapper used
// by the recency buffer.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient wraps go-redis with connection validation and logging.
// It is the process-owned handle to the recency buffer backend: construct it
// at startup, inject it into the components that need it, and Close it on
// shutdown.
type RedisClient struct {
	client *redis.Client
	logger Logger
}

// RedisClientOptions configures the Redis client
type RedisClientOptions struct {
	RedisURL    string
	DialTimeout time.Duration
	Logger      Logger
}

// NewRedisClient creates a Redis client and verifies connectivity with a
// bounded ping before returning.
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		logger.Error("Failed to initialize Redis client", map[string]interface{}{
			"error": "Redis URL is required",
		})
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":     err,
			"redis_url": opts.RedisURL,
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	dialTimeout := opts.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	redisOpt.DialTimeout = dialTimeout

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":     err,
			"redis_url": opts.RedisURL,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", ErrBufferUnavailable)
	}

	logger.Info("Redis client initialized", map[string]interface{}{
		"addr": redisOpt.Addr,
		"db":   redisOpt.DB,
	})

	return &RedisClient{
		client: client,
		logger: logger,
	}, nil
}

// Client exposes the underlying go-redis client for backend implementations
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// HealthCheck verifies the connection is alive
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", ErrBufferUnavailable)
	}
	return nil
}

// Close releases the connection pool
func (r *RedisClient) Close() error {
	return r.client.Close()
}

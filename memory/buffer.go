package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/evermem/evermem/core"
)

// RecencyBuffer is the bounded, insertion-ordered store of the most recent
// entries per namespace. Push and trim are atomic per key; entries beyond
// the configured maximum are dropped with no archival.
type RecencyBuffer interface {
	// Push prepends entry to the namespace buffer and trims to the maximum
	Push(ctx context.Context, namespace string, entry Entry) error
	// Recent returns up to limit entries, newest first. limit <= 0 returns
	// the full buffer contents.
	Recent(ctx context.Context, namespace string, limit int) ([]Entry, error)
	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error
}

// RedisBuffer implements RecencyBuffer on Redis lists. Each namespace is
// one list keyed "<prefix>:<namespace>" with JSON-encoded entries; the
// LPush+LTrim pipeline keeps the length bound enforced immediately after
// every push.
type RedisBuffer struct {
	client *redis.Client
	prefix string
	max    int
	logger core.Logger
}

// RedisBufferOptions configures a RedisBuffer
type RedisBufferOptions struct {
	KeyPrefix  string // defaults to "memory"
	MaxEntries int    // defaults to 1000
	Logger     core.Logger
}

// NewRedisBuffer creates a recency buffer over the given Redis client.
func NewRedisBuffer(client *core.RedisClient, opts RedisBufferOptions) *RedisBuffer {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "memory"
	}
	max := opts.MaxEntries
	if max <= 0 {
		max = 1000
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &RedisBuffer{
		client: client.Client(),
		prefix: prefix,
		max:    max,
		logger: logger,
	}
}

func (b *RedisBuffer) key(namespace string) string {
	return fmt.Sprintf("%s:%s", b.prefix, namespace)
}

// Push prepends the entry and trims the list in one pipeline, so the
// length invariant holds even under concurrent writers.
func (b *RedisBuffer) Push(ctx context.Context, namespace string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	key := b.key(namespace)
	pipe := b.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(b.max)-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return core.NewStoreError("buffer.Push", "buffer", core.ErrBufferUnavailable).WithKey(key)
	}

	b.logger.Debug("Entry pushed", map[string]interface{}{
		"key":  key,
		"size": len(data),
	})
	return nil
}

// Recent reads entries newest-first. Malformed list elements are skipped
// rather than failing the read.
func (b *RedisBuffer) Recent(ctx context.Context, namespace string, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	key := b.key(namespace)
	results, err := b.client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, core.NewStoreError("buffer.Recent", "buffer", core.ErrBufferUnavailable).WithKey(key)
	}

	entries := make([]Entry, 0, len(results))
	for _, data := range results {
		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			b.logger.Warn("Skipping malformed buffer entry", map[string]interface{}{
				"key":   key,
				"error": err,
			})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Ping verifies the Redis backend is reachable
func (b *RedisBuffer) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return core.ErrBufferUnavailable
	}
	return nil
}

// LocalBuffer is an in-process RecencyBuffer for development and tests.
// It mirrors the Redis semantics: newest-first ordering and immediate
// trim after every push.
type LocalBuffer struct {
	mu      sync.RWMutex
	max     int
	entries map[string][]Entry
}

// NewLocalBuffer creates an in-memory recency buffer bounded to max
// entries per namespace (1000 when max <= 0).
func NewLocalBuffer(max int) *LocalBuffer {
	if max <= 0 {
		max = 1000
	}
	return &LocalBuffer{
		max:     max,
		entries: make(map[string][]Entry),
	}
}

// Push prepends the entry and trims to the maximum
func (b *LocalBuffer) Push(ctx context.Context, namespace string, entry Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := append([]Entry{entry}, b.entries[namespace]...)
	if len(list) > b.max {
		list = list[:b.max]
	}
	b.entries[namespace] = list
	return nil
}

// Recent returns up to limit entries, newest first
func (b *LocalBuffer) Recent(ctx context.Context, namespace string, limit int) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.entries[namespace]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	out := make([]Entry, len(list))
	copy(out, list)
	return out, nil
}

// Ping always succeeds for the in-process buffer
func (b *LocalBuffer) Ping(ctx context.Context) error {
	return nil
}

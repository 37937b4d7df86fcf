package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermem/evermem/core"
)

func setupRedisBuffer(t *testing.T, max int) (*miniredis.Miniredis, *RedisBuffer) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL: "redis://" + mr.Addr(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	buffer := NewRedisBuffer(client, RedisBufferOptions{
		MaxEntries: max,
	})
	return mr, buffer
}

func TestRedisBufferPushAndRecent(t *testing.T) {
	_, buffer := setupRedisBuffer(t, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := buffer.Push(ctx, "ns1", Entry{
			Namespace: "ns1",
			Content:   fmt.Sprintf("entry %d", i),
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	entries, err := buffer.Recent(ctx, "ns1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// newest first
	assert.Equal(t, "entry 2", entries[0].Content)
	assert.Equal(t, "entry 1", entries[1].Content)
	assert.Equal(t, "entry 0", entries[2].Content)
}

func TestRedisBufferTrimsToMax(t *testing.T) {
	const max = 5
	_, buffer := setupRedisBuffer(t, max)
	ctx := context.Background()

	for i := 0; i < max+3; i++ {
		err := buffer.Push(ctx, "ns1", Entry{Content: fmt.Sprintf("entry %d", i)})
		require.NoError(t, err)
	}

	entries, err := buffer.Recent(ctx, "ns1", 0)
	require.NoError(t, err)
	require.Len(t, entries, max)

	// oldest entries were dropped, newest survive
	assert.Equal(t, "entry 7", entries[0].Content)
	assert.Equal(t, "entry 3", entries[max-1].Content)
}

func TestRedisBufferRecentLimit(t *testing.T) {
	_, buffer := setupRedisBuffer(t, 100)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, buffer.Push(ctx, "ns1", Entry{Content: fmt.Sprintf("entry %d", i)}))
	}

	entries, err := buffer.Recent(ctx, "ns1", 4)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Equal(t, "entry 9", entries[0].Content)
}

func TestRedisBufferNamespaceIsolation(t *testing.T) {
	_, buffer := setupRedisBuffer(t, 100)
	ctx := context.Background()

	require.NoError(t, buffer.Push(ctx, "ns1", Entry{Content: "in ns1"}))
	require.NoError(t, buffer.Push(ctx, "ns2", Entry{Content: "in ns2"}))

	entries, err := buffer.Recent(ctx, "ns1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "in ns1", entries[0].Content)
}

func TestRedisBufferKeyLayout(t *testing.T) {
	mr, buffer := setupRedisBuffer(t, 100)
	ctx := context.Background()

	require.NoError(t, buffer.Push(ctx, "ns1", Entry{Content: "x"}))

	// persisted state contract: list elements keyed memory:{namespace}
	assert.True(t, mr.Exists("memory:ns1"))
}

func TestRedisBufferSkipsMalformedEntries(t *testing.T) {
	mr, buffer := setupRedisBuffer(t, 100)
	ctx := context.Background()

	require.NoError(t, buffer.Push(ctx, "ns1", Entry{Content: "good"}))
	_, err := mr.Lpush("memory:ns1", "{not json")
	require.NoError(t, err)

	entries, err := buffer.Recent(ctx, "ns1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Content)
}

func TestRedisBufferUnavailable(t *testing.T) {
	mr, buffer := setupRedisBuffer(t, 100)
	mr.Close()

	ctx := context.Background()
	err := buffer.Push(ctx, "ns1", Entry{Content: "x"})
	assert.ErrorIs(t, err, core.ErrBufferUnavailable)

	_, err = buffer.Recent(ctx, "ns1", 0)
	assert.ErrorIs(t, err, core.ErrBufferUnavailable)

	assert.Error(t, buffer.Ping(ctx))
}

func TestLocalBufferMirrorsRedisSemantics(t *testing.T) {
	buffer := NewLocalBuffer(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, buffer.Push(ctx, "ns1", Entry{Content: fmt.Sprintf("entry %d", i)}))
	}

	entries, err := buffer.Recent(ctx, "ns1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry 4", entries[0].Content)

	limited, err := buffer.Recent(ctx, "ns1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	assert.NoError(t, buffer.Ping(ctx))
}

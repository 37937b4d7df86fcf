package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermem/evermem/core"
)

// failingBuffer simulates an unreachable recency buffer backend.
type failingBuffer struct{}

func (f *failingBuffer) Push(ctx context.Context, namespace string, entry Entry) error {
	return core.ErrBufferUnavailable
}

func (f *failingBuffer) Recent(ctx context.Context, namespace string, limit int) ([]Entry, error) {
	return nil, core.ErrBufferUnavailable
}

func (f *failingBuffer) Ping(ctx context.Context) error {
	return core.ErrBufferUnavailable
}

// failingIndex simulates an unreachable search index.
type failingIndex struct{}

func (f *failingIndex) Insert(ctx context.Context, doc IndexedDocument) error { return core.ErrIndexUnavailable }
func (f *failingIndex) Upsert(ctx context.Context, doc IndexedDocument) error { return core.ErrIndexUnavailable }
func (f *failingIndex) DeleteByHash(ctx context.Context, hash string) error   { return core.ErrIndexUnavailable }
func (f *failingIndex) Query(ctx context.Context, ns, q string, limit int) ([]IndexedDocument, error) {
	return nil, core.ErrIndexUnavailable
}
func (f *failingIndex) Ping(ctx context.Context) error { return core.ErrIndexUnavailable }
func (f *failingIndex) Close() error                   { return nil }

func newSQLiteBackedStore(t *testing.T) (*Store, *SQLiteIndex) {
	t.Helper()
	index, err := NewSQLiteIndex(SQLiteIndexOptions{
		Path: filepath.Join(t.TempDir(), "index.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	store := NewStore(NewLocalBuffer(100), StoreOptions{Index: index})
	return store, index
}

func TestStoreAndSearchRoundTrip(t *testing.T) {
	store, _ := newSQLiteBackedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "ns1", "hello world", map[string]interface{}{}))

	results, err := store.Search(ctx, "ns1", "hello", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hello world", results[0].Content)
	assert.Equal(t, "ns1", results[0].Namespace)
	assert.False(t, results[0].Timestamp.IsZero())
}

func TestSearchCaseInsensitive(t *testing.T) {
	store := NewStore(NewLocalBuffer(100), StoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "ns1", "Meeting Notes From Tuesday", nil))

	results, err := store.Search(ctx, "ns1", "meeting notes", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchBufferMatchesPrecedeIndexMatches(t *testing.T) {
	store, index := newSQLiteBackedStore(t)
	ctx := context.Background()

	// index-only document: present in the search index but aged out of
	// (or never in) the buffer
	require.NoError(t, index.Insert(ctx, testDoc("ns1", "archived note about deployment procedure")))

	require.NoError(t, store.Store(ctx, "ns1", "recent note about deployment window", nil))

	results, err := store.Search(ctx, "ns1", "deployment", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "recent note about deployment window", results[0].Content)
	assert.Equal(t, "archived note about deployment procedure", results[1].Content)
}

func TestSearchDeduplicatesAcrossSources(t *testing.T) {
	store, _ := newSQLiteBackedStore(t)
	ctx := context.Background()

	// stored entries are mirrored into the index; the second pass must not
	// return them again
	require.NoError(t, store.Store(ctx, "ns1", "singular searchable entry", nil))

	results, err := store.Search(ctx, "ns1", "searchable", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchRespectsLimit(t *testing.T) {
	store := NewStore(NewLocalBuffer(100), StoreOptions{})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, store.Store(ctx, "ns1", fmt.Sprintf("common prefix entry %d", i), nil))
	}

	results, err := store.Search(ctx, "ns1", "common", 5)
	require.NoError(t, err)
	assert.Len(t, results, 5)

	// default limit is 10
	results, err = store.Search(ctx, "ns1", "common", 0)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestStoreSucceedsWhenIndexFails(t *testing.T) {
	store := NewStore(NewLocalBuffer(100), StoreOptions{Index: &failingIndex{}})
	ctx := context.Background()

	// the index mirror is advisory; only the buffer write decides the outcome
	require.NoError(t, store.Store(ctx, "ns1", "content survives index outage", nil))

	results, err := store.Search(ctx, "ns1", "survives", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStoreFailsWhenBufferFails(t *testing.T) {
	store := NewStore(&failingBuffer{}, StoreOptions{})
	ctx := context.Background()

	err := store.Store(ctx, "ns1", "content", nil)
	assert.ErrorIs(t, err, core.ErrBufferUnavailable)
}

func TestSearchDegradesToIndexOnlyWhenBufferFails(t *testing.T) {
	index, err := NewSQLiteIndex(SQLiteIndexOptions{
		Path: filepath.Join(t.TempDir(), "index.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	ctx := context.Background()
	require.NoError(t, index.Insert(ctx, testDoc("ns1", "indexed content only")))

	store := NewStore(&failingBuffer{}, StoreOptions{Index: index})

	results, err := store.Search(ctx, "ns1", "indexed", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchDegradesToBufferOnlyWhenIndexFails(t *testing.T) {
	store := NewStore(NewLocalBuffer(100), StoreOptions{Index: &failingIndex{}})
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "ns1", "buffered content", nil))

	results, err := store.Search(ctx, "ns1", "buffered", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchEmptyResultsNotError(t *testing.T) {
	store := NewStore(&failingBuffer{}, StoreOptions{})

	results, err := store.Search(context.Background(), "ns1", "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreMetadataRoundTrip(t *testing.T) {
	store, _ := newSQLiteBackedStore(t)
	ctx := context.Background()

	metadata := map[string]interface{}{"source": "agent-7", "priority": "high"}
	require.NoError(t, store.Store(ctx, "ns1", "entry with metadata", metadata))

	results, err := store.Search(ctx, "ns1", "metadata", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "agent-7", results[0].Metadata["source"])
}

func TestHealth(t *testing.T) {
	t.Run("buffer up no index", func(t *testing.T) {
		store := NewStore(NewLocalBuffer(10), StoreOptions{})
		h := store.Health(context.Background())
		assert.Equal(t, "ok", h.Status)
		assert.False(t, h.SearchIndexAvailable)
	})

	t.Run("buffer up index up", func(t *testing.T) {
		store, _ := newSQLiteBackedStore(t)
		h := store.Health(context.Background())
		assert.Equal(t, "ok", h.Status)
		assert.True(t, h.SearchIndexAvailable)
	})

	t.Run("index outage keeps status ok", func(t *testing.T) {
		store := NewStore(NewLocalBuffer(10), StoreOptions{Index: &failingIndex{}})
		h := store.Health(context.Background())
		assert.Equal(t, "ok", h.Status)
		assert.False(t, h.SearchIndexAvailable)
	})

	t.Run("buffer outage is degraded", func(t *testing.T) {
		store := NewStore(&failingBuffer{}, StoreOptions{})
		h := store.Health(context.Background())
		assert.Equal(t, "degraded", h.Status)
	})
}

func TestSearchBudget(t *testing.T) {
	// a store with a tiny budget still returns buffer results even if the
	// slow index cannot answer in time
	slow := &slowIndex{delay: 200 * time.Millisecond}
	store := NewStore(NewLocalBuffer(100), StoreOptions{
		Index:         slow,
		SearchTimeout: 20 * time.Millisecond,
	})
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "ns1", "fast buffered answer", nil))

	results, err := store.Search(ctx, "ns1", "fast", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

// slowIndex blocks until the context expires.
type slowIndex struct {
	delay time.Duration
}

func (s *slowIndex) Insert(ctx context.Context, doc IndexedDocument) error { return nil }
func (s *slowIndex) Upsert(ctx context.Context, doc IndexedDocument) error { return nil }
func (s *slowIndex) DeleteByHash(ctx context.Context, hash string) error   { return nil }
func (s *slowIndex) Query(ctx context.Context, ns, q string, limit int) ([]IndexedDocument, error) {
	select {
	case <-time.After(s.delay):
		return nil, errors.New("should have timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
func (s *slowIndex) Ping(ctx context.Context) error { return nil }
func (s *slowIndex) Close() error                   { return nil }

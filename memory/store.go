package memory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/evermem/evermem/core"
	"github.com/evermem/evermem/dedup"
)

// Store is the stateless request handler over the two shared backends: a
// RecencyBuffer (required, the durability contract) and a SearchIndex
// (optional, advisory). Concurrent calls are safe without in-process
// locks because the buffer backend provides atomic per-key push/trim.
//
// Store does not consult the dedup engine; deduplication is a separate,
// caller-orchestrated step (see dedup.Engine).
type Store struct {
	buffer        RecencyBuffer
	index         SearchIndex // nil when no index is configured
	searchTimeout time.Duration
	logger        core.Logger
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// Index is optional; a nil index disables the ranked second pass
	Index SearchIndex
	// SearchTimeout is the end-to-end budget for Search (default 2s)
	SearchTimeout time.Duration
	Logger        core.Logger
}

// NewStore creates a Store over the given recency buffer.
func NewStore(buffer RecencyBuffer, opts StoreOptions) *Store {
	timeout := opts.SearchTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Store{
		buffer:        buffer,
		index:         opts.Index,
		searchTimeout: timeout,
		logger:        logger,
	}
}

// Store creates an entry with the current timestamp, pushes it to the
// front of the namespace's recency buffer, and mirrors it into the search
// index when one is configured. The index write is advisory: its failure
// is logged and swallowed, and only the buffer write decides the outcome.
func (s *Store) Store(ctx context.Context, namespace, content string, metadata map[string]interface{}) error {
	entry := Entry{
		Namespace: namespace,
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}

	if err := s.buffer.Push(ctx, namespace, entry); err != nil {
		s.logger.Error("Buffer push failed", map[string]interface{}{
			"namespace": namespace,
			"error":     err,
		})
		return err
	}

	if s.index != nil {
		doc := IndexedDocument{
			ContentHash: dedup.Fingerprint(content),
			Namespace:   namespace,
			Content:     content,
			Metadata:    serializeMetadata(metadata),
			Timestamp:   entry.Timestamp.Format(time.RFC3339),
		}
		if err := s.index.Insert(ctx, doc); err != nil {
			// Advisory mirror: the buffer write already succeeded
			s.logger.Warn("Search index mirror failed", map[string]interface{}{
				"namespace": namespace,
				"error":     err,
			})
		}
	}

	s.logger.Debug("Entry stored", map[string]interface{}{
		"namespace":    namespace,
		"content_size": len(content),
	})
	return nil
}

// Search returns up to limit entries matching query. The recency buffer is
// scanned first for case-insensitive substring matches in insertion order;
// if it yields fewer than limit and an index is configured, a ranked query
// tops up the results, de-duplicated against the first pass by exact
// content equality. Buffer matches always precede index matches.
//
// One end-to-end budget covers both passes. Backend failures degrade the
// result set instead of erroring: a dead buffer yields index-only results,
// a dead index yields buffer-only results.
func (s *Store) Search(ctx context.Context, namespace, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	results := make([]Entry, 0, limit)
	seen := make(map[string]bool)

	entries, err := s.buffer.Recent(ctx, namespace, 0)
	if err != nil {
		s.logger.Warn("Buffer scan degraded to empty", map[string]interface{}{
			"namespace": namespace,
			"error":     err,
		})
	} else {
		needle := strings.ToLower(query)
		for _, entry := range entries {
			if strings.Contains(strings.ToLower(entry.Content), needle) {
				results = append(results, entry)
				seen[entry.Content] = true
				if len(results) >= limit {
					return results, nil
				}
			}
		}
	}

	if s.index == nil || len(results) >= limit {
		return results, nil
	}

	docs, err := s.index.Query(ctx, namespace, query, limit)
	if err != nil {
		// Degraded index never fails the search
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("Search index query exceeded budget", map[string]interface{}{
				"namespace": namespace,
				"timeout":   s.searchTimeout.String(),
			})
		} else {
			s.logger.Warn("Search index query failed", map[string]interface{}{
				"namespace": namespace,
				"error":     err,
			})
		}
		return results, nil
	}

	for _, doc := range docs {
		if seen[doc.Content] {
			continue
		}
		results = append(results, docToEntry(doc))
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Health describes backend reachability for the health endpoint.
type Health struct {
	// Status is "ok" unless the recency buffer is unreachable
	Status string `json:"status"`
	// SearchIndexAvailable reports the advisory index; an index outage
	// alone keeps Status "ok"
	SearchIndexAvailable bool `json:"searchIndexAvailable"`
}

// Health reports the reachability of both backends. Only the recency
// buffer is authoritative for degraded status.
func (s *Store) Health(ctx context.Context) Health {
	h := Health{Status: "ok"}

	if err := s.buffer.Ping(ctx); err != nil {
		h.Status = "degraded"
	}
	if s.index != nil {
		h.SearchIndexAvailable = s.index.Ping(ctx) == nil
	}
	return h
}

func serializeMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return "{}"
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func docToEntry(doc IndexedDocument) Entry {
	entry := Entry{
		Namespace: doc.Namespace,
		Content:   doc.Content,
	}
	if doc.Metadata != "" {
		var metadata map[string]interface{}
		if err := json.Unmarshal([]byte(doc.Metadata), &metadata); err == nil {
			entry.Metadata = metadata
		}
	}
	if ts, err := time.Parse(time.RFC3339, doc.Timestamp); err == nil {
		entry.Timestamp = ts
	}
	return entry
}

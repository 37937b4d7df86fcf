package memory

import "context"

// IndexedDocument is the search index's view of a memory or bootstrap
// document. ContentHash is the natural key: at most one live document per
// hash per collection, best-effort rather than transactional across
// backends.
type IndexedDocument struct {
	ID          string `json:"id"`
	ContentHash string `json:"content_hash"`
	Namespace   string `json:"namespace"`
	Content     string `json:"content"`
	Metadata    string `json:"metadata"` // serialized JSON
	Timestamp   string `json:"timestamp"`
}

// SearchIndex is the optional ranked-search collaborator. Implementations
// must tolerate concurrent callers; Upsert must be atomic with respect to
// other Upserts on the same handle so re-indexing identical content cannot
// leave zero or duplicate live documents for one hash.
type SearchIndex interface {
	// Insert adds a document without replacing existing ones
	Insert(ctx context.Context, doc IndexedDocument) error
	// Upsert replaces any live document with the same ContentHash
	Upsert(ctx context.Context, doc IndexedDocument) error
	// DeleteByHash removes all documents with the given content hash
	DeleteByHash(ctx context.Context, contentHash string) error
	// Query returns documents for the namespace ranked by relevance
	Query(ctx context.Context, namespace, query string, limit int) ([]IndexedDocument, error)
	// Ping verifies the index is usable
	Ping(ctx context.Context) error
	// Close releases backend resources
	Close() error
}

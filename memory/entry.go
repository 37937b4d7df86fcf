// Package memory implements the two-tier memory store: a bounded
// per-namespace recency buffer backed by Redis lists, and an optional
// BM25-ranked search index backed by SQLite FTS5. Writes land in the
// buffer (the sole durability contract) and are mirrored into the index
// on a best-effort basis; reads merge buffer matches ahead of ranked
// index matches.
package memory

import "time"

// Entry is one memory record. Entries are created by Store, never mutated,
// and silently dropped (not archived) when the recency buffer trims.
type Entry struct {
	Namespace string                 `json:"namespace"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

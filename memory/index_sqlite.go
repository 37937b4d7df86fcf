package memory

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/evermem/evermem/core"
)

// SQLiteIndex implements SearchIndex over a SQLite FTS5 table, ranked with
// the built-in bm25() function. The schema is created lazily on first use,
// so pointing the service at a fresh path just works.
//
// Writes are serialized through a single connection and each Upsert runs
// its delete-then-insert inside one transaction, closing the window where
// concurrent re-indexing of identical content could leave zero or two live
// documents for a hash.
type SQLiteIndex struct {
	db         *sql.DB
	collection string
	logger     core.Logger

	schemaOnce sync.Once
	schemaErr  error
	writeMu    sync.Mutex
}

// SQLiteIndexOptions configures a SQLiteIndex
type SQLiteIndexOptions struct {
	Path       string
	Collection string // defaults to "documents"
	Logger     core.Logger
}

var collectionNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSQLiteIndex opens (or creates) the index database at the given path.
func NewSQLiteIndex(opts SQLiteIndexOptions) (*SQLiteIndex, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("index path is required: %w", core.ErrMissingConfiguration)
	}
	collection := opts.Collection
	if collection == "" {
		collection = "documents"
	}
	if !collectionNameRe.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q: %w", collection, core.ErrInvalidConfiguration)
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	db, err := sql.Open("sqlite", opts.Path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	// modernc.org/sqlite handles a single writer best; one connection also
	// keeps the lazy schema visible to every statement
	db.SetMaxOpenConns(1)

	return &SQLiteIndex{
		db:         db,
		collection: collection,
		logger:     logger,
	}, nil
}

// ensureSchema creates the collection table, its FTS5 mirror, and the sync
// triggers on first use.
func (s *SQLiteIndex) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		c := s.collection
		schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id           TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		namespace    TEXT NOT NULL,
		content      TEXT NOT NULL,
		metadata     TEXT,
		timestamp    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_hash ON %[1]s(content_hash);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_ns ON %[1]s(namespace);

	CREATE VIRTUAL TABLE IF NOT EXISTS %[1]s_fts USING fts5(
		content,
		content=%[1]s,
		content_rowid=rowid
	);

	CREATE TRIGGER IF NOT EXISTS %[1]s_ai AFTER INSERT ON %[1]s BEGIN
		INSERT INTO %[1]s_fts(rowid, content) VALUES (new.rowid, new.content);
	END;
	CREATE TRIGGER IF NOT EXISTS %[1]s_ad AFTER DELETE ON %[1]s BEGIN
		INSERT INTO %[1]s_fts(%[1]s_fts, rowid, content) VALUES('delete', old.rowid, old.content);
	END;
	`, c)

		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			s.schemaErr = fmt.Errorf("create index schema: %w", err)
		}
	})
	return s.schemaErr
}

func (s *SQLiteIndex) newID() string {
	return ulid.Make().String()
}

// Insert adds a document. The ID is generated when absent.
func (s *SQLiteIndex) Insert(ctx context.Context, doc IndexedDocument) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = s.newID()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, content_hash, namespace, content, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`, s.collection),
		doc.ID, doc.ContentHash, doc.Namespace, doc.Content, doc.Metadata, doc.Timestamp)
	if err != nil {
		return core.NewStoreError("index.Insert", "index", core.ErrIndexUnavailable).WithKey(doc.ContentHash)
	}
	return nil
}

// Upsert atomically replaces any live document carrying the same content
// hash: the delete and insert run in one transaction.
func (s *SQLiteIndex) Upsert(ctx context.Context, doc IndexedDocument) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = s.newID()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStoreError("index.Upsert", "index", core.ErrIndexUnavailable).WithKey(doc.ContentHash)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE content_hash = ?`, s.collection),
		doc.ContentHash); err != nil {
		return core.NewStoreError("index.Upsert", "index", core.ErrIndexUnavailable).WithKey(doc.ContentHash)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, content_hash, namespace, content, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`, s.collection),
		doc.ID, doc.ContentHash, doc.Namespace, doc.Content, doc.Metadata, doc.Timestamp); err != nil {
		return core.NewStoreError("index.Upsert", "index", core.ErrIndexUnavailable).WithKey(doc.ContentHash)
	}
	if err := tx.Commit(); err != nil {
		return core.NewStoreError("index.Upsert", "index", core.ErrIndexUnavailable).WithKey(doc.ContentHash)
	}
	return nil
}

// DeleteByHash removes all documents with the given content hash
func (s *SQLiteIndex) DeleteByHash(ctx context.Context, contentHash string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE content_hash = ?`, s.collection),
		contentHash)
	if err != nil {
		return core.NewStoreError("index.DeleteByHash", "index", core.ErrIndexUnavailable).WithKey(contentHash)
	}
	return nil
}

// Query returns documents for the namespace ranked by bm25 relevance,
// best match first. Empty or whitespace-only queries return no results.
func (s *SQLiteIndex) Query(ctx context.Context, namespace, query string, limit int) ([]IndexedDocument, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	c := s.collection
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.id, d.content_hash, d.namespace, d.content, d.metadata, d.timestamp
		FROM %[1]s_fts f
		JOIN %[1]s d ON d.rowid = f.rowid
		WHERE %[1]s_fts MATCH ? AND d.namespace = ?
		ORDER BY bm25(%[1]s_fts)
		LIMIT ?`, c),
		ftsQuote(query), namespace, limit)
	if err != nil {
		return nil, core.NewStoreError("index.Query", "index", core.ErrIndexUnavailable).WithKey(namespace)
	}
	defer rows.Close()

	var docs []IndexedDocument
	for rows.Next() {
		var doc IndexedDocument
		var metadata sql.NullString
		if err := rows.Scan(&doc.ID, &doc.ContentHash, &doc.Namespace, &doc.Content, &metadata, &doc.Timestamp); err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		doc.Metadata = metadata.String
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Ping verifies the database handle is usable
func (s *SQLiteIndex) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return core.ErrIndexUnavailable
	}
	return nil
}

// Close releases the database handle
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// ftsQuote wraps the user query in FTS5 string syntax so free text cannot
// be misparsed as MATCH operators.
func ftsQuote(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// Package indexer bulk-loads a file tree into the search index, keyed by
// content fingerprint. It runs independently of the serving path and is
// idempotent: re-running against unchanged content replaces documents
// instead of duplicating them.
package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evermem/evermem/core"
	"github.com/evermem/evermem/dedup"
	"github.com/evermem/evermem/memory"
)

// DefaultMaxFileSize bounds how large a file the walker will index.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

// skipDirs are directory names the walker never descends into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// BootstrapIndexer populates a search index from a file tree or batch
// source.
type BootstrapIndexer struct {
	index       memory.SearchIndex
	namespace   string
	maxFileSize int64
	logger      core.Logger
}

// Options configures a BootstrapIndexer
type Options struct {
	// Namespace to index documents under (default "docs")
	Namespace string
	// MaxFileSize in bytes; larger files are skipped (default 1 MiB)
	MaxFileSize int64
	Logger      core.Logger
}

// New creates a BootstrapIndexer over the given search index.
func New(index memory.SearchIndex, opts Options) *BootstrapIndexer {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "docs"
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &BootstrapIndexer{
		index:       index,
		namespace:   namespace,
		maxFileSize: maxSize,
		logger:      logger,
	}
}

// Upsert fingerprints content and replaces any live document carrying the
// same fingerprint. The replace is atomic per index handle (see
// SearchIndex.Upsert); concurrent upserts of identical content across
// processes still need external serialization per fingerprint.
func (b *BootstrapIndexer) Upsert(ctx context.Context, path, content string) error {
	doc := memory.IndexedDocument{
		ContentHash: dedup.Fingerprint(content),
		Namespace:   b.namespace,
		Content:     content,
		Metadata:    fmt.Sprintf(`{"path":%q}`, path),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := b.index.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}
	return nil
}

// Run walks root and upserts one document per indexable file, keyed by
// the path relative to root. Unreadable, oversized, hidden, and binary
// files are skipped with a log line rather than aborting the walk.
func (b *BootstrapIndexer) Run(ctx context.Context, root string) error {
	indexed := 0
	skipped := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("Skipping unreadable path", map[string]interface{}{
				"path":  path,
				"error": err,
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if skipDirs[name] || (strings.HasPrefix(name, ".") && path != root) {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			skipped++
			return nil
		}
		if info.Size() > b.maxFileSize {
			b.logger.Debug("Skipping oversized file", map[string]interface{}{
				"path": path,
				"size": info.Size(),
			})
			skipped++
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("Skipping unreadable file", map[string]interface{}{
				"path":  path,
				"error": err,
			})
			skipped++
			return nil
		}
		if isBinary(data) {
			skipped++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if err := b.Upsert(ctx, filepath.ToSlash(rel), string(data)); err != nil {
			b.logger.Warn("Upsert failed", map[string]interface{}{
				"path":  rel,
				"error": err,
			})
			skipped++
			return nil
		}
		indexed++
		return nil
	})

	b.logger.Info("Bootstrap indexing finished", map[string]interface{}{
		"root":    root,
		"indexed": indexed,
		"skipped": skipped,
	})
	return err
}

// isBinary sniffs the first bytes for a NUL, the usual quick test for
// non-text content.
func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	return bytes.IndexByte(sniff, 0) != -1
}

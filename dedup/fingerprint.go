package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// normalize trims surrounding whitespace and case-folds content so that
// fingerprints are insensitive to leading/trailing space and letter case.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fingerprint computes a SHA-256 digest over the normalized UTF-8 bytes of
// content, returned as lowercase hex. It is deterministic and never fails;
// the empty string maps to the digest of the empty normalized string.
//
// The fingerprint serves two roles: set-membership checks in the dedup
// engine and the natural key for search index upserts.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(normalize(content)))
	return hex.EncodeToString(sum[:])
}

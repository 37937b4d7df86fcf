package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// RowKeySignature builds an identity signature for a record over the given
// key fields. The canonical form joins "<key>:<normalizedValue>" fragments
// in the fixed order of keys, so two records are identity-duplicates iff
// their signatures are equal. Missing fields contribute an empty value.
//
// The key order must be stable across calls sharing one policy; signatures
// produced under different orderings are not comparable.
func RowKeySignature(rec Record, keys []string) string {
	fragments := make([]string, 0, len(keys))
	for _, key := range keys {
		fragments = append(fragments, key+":"+normalize(rec.GetString(key)))
	}
	canonical := strings.Join(fragments, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

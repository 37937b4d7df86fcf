package dedup

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio computes a normalized similarity in [0,1] between two strings using
// Levenshtein edit distance over case-folded, trimmed input:
//
//	ratio = 1 - distance(a, b) / max(len(a), len(b))
//
// measured in runes. The algorithm choice is part of the dedup contract:
// the ratio is symmetric, monotone in edit distance, 1.0 for equal
// normalized strings (including both empty), and 0.0 when exactly one side
// is empty.
func Ratio(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// Similar reports whether the similarity ratio of a and b meets threshold.
func Similar(a, b string, threshold float64) bool {
	return Ratio(a, b) >= threshold
}

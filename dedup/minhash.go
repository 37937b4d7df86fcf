package dedup

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"
)

// DefaultPermutations is the default MinHash signature length. More
// permutations lower the variance of the Jaccard estimate at proportional
// signing cost.
const DefaultPermutations = 64

// Signer produces fixed-length MinHash signatures approximating the
// Jaccard similarity of whitespace token sets.
type Signer struct {
	numPerm int
}

// NewSigner creates a Signer with the given number of logical permutations.
// Non-positive values fall back to DefaultPermutations.
func NewSigner(numPerm int) *Signer {
	if numPerm <= 0 {
		numPerm = DefaultPermutations
	}
	return &Signer{numPerm: numPerm}
}

// Sign tokenizes content on whitespace and returns a signature of numPerm
// per-permutation minimum hash values. Content with zero tokens yields an
// all-zero signature: the explicit "no information" value.
func (s *Signer) Sign(content string) []uint64 {
	sig := make([]uint64, s.numPerm)

	tokens := strings.Fields(normalize(content))
	if len(tokens) == 0 {
		return sig
	}

	for i := 0; i < s.numPerm; i++ {
		min := ^uint64(0)
		prefix := strconv.Itoa(i) + ":"
		for _, token := range tokens {
			sum := sha256.Sum256([]byte(prefix + token))
			if v := binary.BigEndian.Uint64(sum[:8]); v < min {
				min = v
			}
		}
		sig[i] = min
	}
	return sig
}

// Similarity returns the fraction of equal-position matches between two
// signatures. Signatures of different lengths are incomparable and score
// 0.0, as do empty signatures.
func Similarity(a, b []uint64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}

// BatchEntry is one item in a near-duplicate curation batch.
type BatchEntry struct {
	ID      string
	Topic   string
	Content string
}

// PairMatch records a near-duplicate pair and its estimated similarity.
type PairMatch struct {
	IDA        string  `json:"id_a"`
	IDB        string  `json:"id_b"`
	Similarity float64 `json:"similarity"`
}

// GroupNearDuplicates compares entries sharing a topic pairwise and
// collects pairs whose MinHash similarity meets threshold, keyed by topic.
// The comparison is O(n²) per topic, which is acceptable for the small
// curation batches this is used on; larger batches would need LSH banding
// over the signatures instead.
func (s *Signer) GroupNearDuplicates(entries []BatchEntry, threshold float64) map[string][]PairMatch {
	byTopic := make(map[string][]BatchEntry)
	for _, e := range entries {
		byTopic[e.Topic] = append(byTopic[e.Topic], e)
	}

	groups := make(map[string][]PairMatch)
	for topic, batch := range byTopic {
		if len(batch) < 2 {
			continue
		}

		sigs := make([][]uint64, len(batch))
		for i, e := range batch {
			sigs[i] = s.Sign(e.Content)
		}

		for i := 0; i < len(batch); i++ {
			for j := i + 1; j < len(batch); j++ {
				sim := Similarity(sigs[i], sigs[j])
				if sim >= threshold {
					groups[topic] = append(groups[topic], PairMatch{
						IDA:        batch[i].ID,
						IDB:        batch[j].ID,
						Similarity: sim,
					})
				}
			}
		}
	}
	return groups
}

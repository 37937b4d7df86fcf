// Package dedup implements the deduplication decision engine used before
// persisting new memory content: exact content fingerprinting, row-key
// identity signatures, fuzzy field comparison, and MinHash-based
// near-duplicate detection, composed by a configurable strategy chain.
//
// The engine is advisory: callers run IsDuplicate against a batch of
// existing records before deciding whether to store a candidate. Storing
// itself never consults the engine.
package dedup

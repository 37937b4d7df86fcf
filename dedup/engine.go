package dedup

import (
	"github.com/evermem/evermem/core"
)

// Strategy names accepted in a Policy's Order.
const (
	StrategyContentHash = "content_hash"
	StrategyRowKeys     = "row_keys"
	StrategyFuzzy       = "fuzzy"
)

// Policy configures the dedup strategy chain. It is loaded once at Engine
// construction and read-only thereafter.
type Policy struct {
	// Order lists strategies to evaluate; the first positive wins
	Order []string
	// RowKeys are the identity fields for the row_keys strategy
	RowKeys []string
	// FuzzyFields are compared by the fuzzy strategy
	FuzzyFields []string
	// FuzzyThreshold is the minimum similarity ratio for a fuzzy match
	FuzzyThreshold float64
}

// DefaultPolicy returns the standard strategy chain: exact content hash,
// then row-key identity, then fuzzy field comparison at 0.85.
func DefaultPolicy() Policy {
	return Policy{
		Order:          []string{StrategyContentHash, StrategyRowKeys, StrategyFuzzy},
		FuzzyThreshold: 0.85,
	}
}

// PolicyFromConfig builds a Policy from service configuration, applying
// defaults for unset fields.
func PolicyFromConfig(cfg core.DedupConfig) Policy {
	p := Policy{
		Order:          cfg.Order,
		RowKeys:        cfg.RowKeys,
		FuzzyFields:    cfg.FuzzyFields,
		FuzzyThreshold: cfg.FuzzyThreshold,
	}
	if len(p.Order) == 0 {
		p.Order = DefaultPolicy().Order
	}
	if p.FuzzyThreshold == 0 {
		p.FuzzyThreshold = DefaultPolicy().FuzzyThreshold
	}
	return p
}

// Engine evaluates a candidate record against existing records using the
// configured strategy chain.
type Engine struct {
	policy Policy
	logger core.Logger
}

// NewEngine creates an Engine with the given policy. A nil logger falls
// back to NoOpLogger.
func NewEngine(policy Policy, logger core.Logger) *Engine {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if len(policy.Order) == 0 {
		policy.Order = DefaultPolicy().Order
	}
	return &Engine{
		policy: policy,
		logger: logger,
	}
}

// IsDuplicate reports whether candidate duplicates any record in existing.
// Strategies run in policy order and the first positive match wins: both
// the strategy loop and the item scan short-circuit, and no scores are
// aggregated across strategies.
//
// Unknown strategy names contribute no dedup signal. They are skipped with
// a warning rather than failing the call, trading strictness for
// availability: a misconfigured policy degrades to more false negatives.
func (e *Engine) IsDuplicate(candidate Record, existing []Record) bool {
	for _, strategy := range e.policy.Order {
		switch strategy {
		case StrategyContentHash:
			if e.matchContentHash(candidate, existing) {
				return true
			}
		case StrategyRowKeys:
			if e.matchRowKeys(candidate, existing) {
				return true
			}
		case StrategyFuzzy:
			if e.matchFuzzy(candidate, existing) {
				return true
			}
		default:
			e.logger.Warn("Unknown dedup strategy, skipping", map[string]interface{}{
				"strategy": strategy,
				"order":    e.policy.Order,
			})
		}
	}
	return false
}

func (e *Engine) matchContentHash(candidate Record, existing []Record) bool {
	candHash := Fingerprint(candidate.GetString("content"))
	for _, rec := range existing {
		if Fingerprint(rec.GetString("content")) == candHash {
			e.logger.Debug("Duplicate found", map[string]interface{}{
				"strategy": StrategyContentHash,
			})
			return true
		}
	}
	return false
}

func (e *Engine) matchRowKeys(candidate Record, existing []Record) bool {
	if len(e.policy.RowKeys) == 0 {
		return false
	}
	candSig := RowKeySignature(candidate.Sub("record"), e.policy.RowKeys)
	for _, rec := range existing {
		if RowKeySignature(rec.Sub("record"), e.policy.RowKeys) == candSig {
			e.logger.Debug("Duplicate found", map[string]interface{}{
				"strategy": StrategyRowKeys,
				"row_keys": e.policy.RowKeys,
			})
			return true
		}
	}
	return false
}

func (e *Engine) matchFuzzy(candidate Record, existing []Record) bool {
	if len(e.policy.FuzzyFields) == 0 {
		return false
	}
	candRec := candidate.Sub("record")
	for _, rec := range existing {
		exRec := rec.Sub("record")
		for _, field := range e.policy.FuzzyFields {
			candVal := candRec.GetString(field)
			exVal := exRec.GetString(field)
			// Missing fields compare as non-matches, never as errors
			if candVal == "" || exVal == "" {
				continue
			}
			if Similar(candVal, exVal, e.policy.FuzzyThreshold) {
				e.logger.Debug("Duplicate found", map[string]interface{}{
					"strategy":  StrategyFuzzy,
					"field":     field,
					"threshold": e.policy.FuzzyThreshold,
				})
				return true
			}
		}
	}
	return false
}

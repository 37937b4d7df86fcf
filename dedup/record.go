package dedup

// Record is a dynamically shaped item examined by the dedup engine, such as
// a candidate memory or a previously stored one. Fields the engine reads
// ("content", "record", row keys, fuzzy fields) may be absent; absence
// normalizes to the empty string rather than an error.
type Record map[string]interface{}

// GetString returns the named field as a string, or "" when the field is
// missing or not a string. Missing-means-empty is the documented default
// policy for all dedup comparisons.
func (r Record) GetString(key string) string {
	if r == nil {
		return ""
	}
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Sub returns the named field as a nested Record, or nil when the field is
// missing or not map-shaped. Both Record and plain map values are accepted
// since records frequently arrive from JSON decoding.
func (r Record) Sub(key string) Record {
	if r == nil {
		return nil
	}
	switch v := r[key].(type) {
	case Record:
		return v
	case map[string]interface{}:
		return Record(v)
	}
	return nil
}

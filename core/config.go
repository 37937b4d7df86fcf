package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the evermem service.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// An optional YAML file can be loaded with LoadFromFile before the
// environment layer is applied.
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithRedisURL("redis://localhost:6379"),
//	    WithBufferMaxEntries(500),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Service name used in logs and telemetry
	Name string `yaml:"name"`

	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Index     IndexConfig     `yaml:"index"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig locates the recency buffer backend.
type RedisConfig struct {
	URL         string        `yaml:"url"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	OpTimeout   time.Duration `yaml:"op_timeout"`
}

// BufferConfig controls the per-namespace recency buffer.
type BufferConfig struct {
	// MaxEntries bounds each namespace list; oldest entries are dropped
	MaxEntries int `yaml:"max_entries"`
	// KeyPrefix is prepended to the namespace to build the Redis key,
	// e.g. "memory" yields keys like "memory:ns1"
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig controls the optional search index. When Enabled is false the
// store runs buffer-only and search skips the ranked second pass.
type IndexConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Path         string        `yaml:"path"`
	Collection   string        `yaml:"collection"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DedupConfig is the deduplication policy loaded once at engine construction.
type DedupConfig struct {
	// Order lists strategies to try: content_hash, row_keys, fuzzy
	Order          []string `yaml:"order"`
	RowKeys        []string `yaml:"row_keys"`
	FuzzyFields    []string `yaml:"fuzzy_fields"`
	FuzzyThreshold float64  `yaml:"fuzzy_threshold"`
	// MinHashPermutations tunes near-duplicate estimate variance
	MinHashPermutations int `yaml:"minhash_permutations"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig controls the OpenTelemetry tracer bootstrap.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Option is a functional option for configuring the service
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Name: "evermem",
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			URL:         "redis://localhost:6379",
			DialTimeout: 5 * time.Second,
			OpTimeout:   2 * time.Second,
		},
		Buffer: BufferConfig{
			MaxEntries: 1000,
			KeyPrefix:  "memory",
		},
		Index: IndexConfig{
			Enabled:      false,
			Path:         "evermem.db",
			Collection:   "documents",
			QueryTimeout: 2 * time.Second,
		},
		Dedup: DedupConfig{
			Order:               []string{"content_hash", "row_keys", "fuzzy"},
			FuzzyThreshold:      0.85,
			MinHashPermutations: 64,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "",
		},
	}
}

// NewConfig creates a configuration by layering defaults, environment
// variables, and the given options, then validating the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv overlays environment variables onto the configuration
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("EVERMEM_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("EVERMEM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVERMEM_PORT %q: %w", v, ErrInvalidConfiguration)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv("EVERMEM_REDIS_URL"); v != "" {
		c.Redis.URL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("EVERMEM_BUFFER_MAX"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVERMEM_BUFFER_MAX %q: %w", v, ErrInvalidConfiguration)
		}
		c.Buffer.MaxEntries = max
	}
	if v := os.Getenv("EVERMEM_INDEX_ENABLED"); v != "" {
		c.Index.Enabled = parseBool(v)
	}
	if v := os.Getenv("EVERMEM_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("EVERMEM_INDEX_COLLECTION"); v != "" {
		c.Index.Collection = v
	}
	if v := os.Getenv("EVERMEM_DEDUP_ORDER"); v != "" {
		c.Dedup.Order = parseStringList(v)
	}
	if v := os.Getenv("EVERMEM_DEDUP_ROW_KEYS"); v != "" {
		c.Dedup.RowKeys = parseStringList(v)
	}
	if v := os.Getenv("EVERMEM_DEDUP_FUZZY_FIELDS"); v != "" {
		c.Dedup.FuzzyFields = parseStringList(v)
	}
	if v := os.Getenv("EVERMEM_DEDUP_FUZZY_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("EVERMEM_DEDUP_FUZZY_THRESHOLD %q: %w", v, ErrInvalidConfiguration)
		}
		c.Dedup.FuzzyThreshold = threshold
	}
	if v := os.Getenv("EVERMEM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EVERMEM_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("EVERMEM_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	return nil
}

// LoadFromFile overlays a YAML configuration file onto the configuration
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for invalid combinations
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("port %d out of range: %w", c.HTTP.Port, ErrInvalidConfiguration)
	}
	if c.Buffer.MaxEntries <= 0 {
		return fmt.Errorf("buffer max_entries must be positive: %w", ErrInvalidConfiguration)
	}
	if c.Buffer.KeyPrefix == "" {
		return fmt.Errorf("buffer key_prefix must not be empty: %w", ErrInvalidConfiguration)
	}
	if c.Dedup.FuzzyThreshold < 0 || c.Dedup.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold %v outside [0,1]: %w", c.Dedup.FuzzyThreshold, ErrInvalidConfiguration)
	}
	if c.Dedup.MinHashPermutations <= 0 {
		return fmt.Errorf("minhash_permutations must be positive: %w", ErrInvalidConfiguration)
	}
	if c.Index.Enabled && c.Index.Path == "" {
		return fmt.Errorf("index enabled without a path: %w", ErrMissingConfiguration)
	}
	return nil
}

func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// WithName sets the service name
func WithName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("name cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Name = name
		return nil
	}
}

// WithPort sets the HTTP port
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %d: %w", port, ErrInvalidConfiguration)
		}
		c.HTTP.Port = port
		return nil
	}
}

// WithRedisURL sets the recency buffer backend URL
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		if url == "" {
			return fmt.Errorf("redis URL cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Redis.URL = url
		return nil
	}
}

// WithBufferMaxEntries bounds each namespace's recency buffer
func WithBufferMaxEntries(max int) Option {
	return func(c *Config) error {
		if max <= 0 {
			return fmt.Errorf("buffer max %d must be positive: %w", max, ErrInvalidConfiguration)
		}
		c.Buffer.MaxEntries = max
		return nil
	}
}

// WithIndex enables the search index at the given path
func WithIndex(path, collection string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("index path cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Index.Enabled = true
		c.Index.Path = path
		if collection != "" {
			c.Index.Collection = collection
		}
		return nil
	}
}

// WithDedupPolicy sets the dedup strategy chain
func WithDedupPolicy(order, rowKeys, fuzzyFields []string, fuzzyThreshold float64) Option {
	return func(c *Config) error {
		if fuzzyThreshold < 0 || fuzzyThreshold > 1 {
			return fmt.Errorf("fuzzy threshold %v outside [0,1]: %w", fuzzyThreshold, ErrInvalidConfiguration)
		}
		if len(order) > 0 {
			c.Dedup.Order = order
		}
		c.Dedup.RowKeys = rowKeys
		c.Dedup.FuzzyFields = fuzzyFields
		c.Dedup.FuzzyThreshold = fuzzyThreshold
		return nil
	}
}

// WithLogLevel sets the log level
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithTelemetry enables tracing with an optional OTLP endpoint
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

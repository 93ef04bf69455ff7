package deduplication

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/dupwatch/internal/settings"
	"github.com/steveyegge/dupwatch/internal/types"
)

// Config holds configuration for the duplicate check
type Config struct {
	// ChunkSize is the number of candidates fetched and scored per batch call
	// The batch endpoint accepts at most 200 identifiers
	// Default: 200
	ChunkSize int

	// MaxCandidates caps how many open items the query returns (newest first)
	// Default: 1000
	MaxCandidates int

	// MaxConcurrentChunks limits how many chunks are fetched at once
	// Default: 0 (all chunks at once)
	MaxConcurrentChunks int

	// ExcludedStates are the states that do not count as open
	// Default: [Closed]
	ExcludedStates []string

	// DebounceWait is the quiet period after the last edit before a check runs
	// Default: 1 second
	DebounceWait time.Duration

	// Scope selects which settings partition holds the policy
	// Default: Default
	Scope settings.Scope
}

// DefaultConfig returns the default duplicate check configuration
func DefaultConfig() Config {
	return Config{
		ChunkSize:           types.DefaultChunkSize,
		MaxCandidates:       1000,
		MaxConcurrentChunks: 0,
		ExcludedStates:      []string{"Closed"},
		DebounceWait:        time.Second,
		Scope:               settings.ScopeDefault,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive (got %d)", c.ChunkSize)
	}
	if c.ChunkSize > types.DefaultChunkSize {
		return fmt.Errorf("chunk_size too large (got %d, max %d)", c.ChunkSize, types.DefaultChunkSize)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive (got %d)", c.MaxCandidates)
	}
	if c.MaxCandidates > 20000 {
		return fmt.Errorf("max_candidates too large (got %d, max 20000)", c.MaxCandidates)
	}
	if c.MaxConcurrentChunks < 0 {
		return fmt.Errorf("max_concurrent_chunks cannot be negative (got %d)", c.MaxConcurrentChunks)
	}
	if len(c.ExcludedStates) == 0 {
		return fmt.Errorf("excluded_states cannot be empty")
	}
	if c.DebounceWait <= 0 {
		return fmt.Errorf("debounce_wait must be positive (got %v)", c.DebounceWait)
	}
	if c.DebounceWait > time.Minute {
		return fmt.Errorf("debounce_wait too large (got %v, max 1 minute)", c.DebounceWait)
	}
	if c.Scope != settings.ScopeDefault && c.Scope != settings.ScopeUser {
		return fmt.Errorf("scope must be %q or %q (got %q)", settings.ScopeDefault, settings.ScopeUser, c.Scope)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{ChunkSize: %d, MaxCandidates: %d, MaxConcurrentChunks: %d, "+
			"ExcludedStates: %v, DebounceWait: %v, Scope: %s}",
		c.ChunkSize, c.MaxCandidates, c.MaxConcurrentChunks,
		c.ExcludedStates, c.DebounceWait, c.Scope,
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - DUPWATCH_CHUNK_SIZE: Candidates per batch fetch (default: 200)
//   - DUPWATCH_MAX_CANDIDATES: Maximum open items compared (default: 1000)
//   - DUPWATCH_MAX_CONCURRENT_CHUNKS: Concurrent batch fetches, 0 for all (default: 0)
//   - DUPWATCH_EXCLUDED_STATES: Comma-separated states that are not open (default: Closed)
//   - DUPWATCH_DEBOUNCE_MS: Quiet period after an edit in milliseconds (default: 1000)
//   - DUPWATCH_SETTINGS_SCOPE: Settings scope, Default or User (default: Default)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overlays DUPWATCH_* environment variables on cfg and validates the result.
func ApplyEnv(cfg Config) (Config, error) {
	if err := parseEnvInt("DUPWATCH_CHUNK_SIZE", &cfg.ChunkSize); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("DUPWATCH_MAX_CANDIDATES", &cfg.MaxCandidates); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("DUPWATCH_MAX_CONCURRENT_CHUNKS", &cfg.MaxConcurrentChunks); err != nil {
		return cfg, err
	}
	parseEnvList("DUPWATCH_EXCLUDED_STATES", &cfg.ExcludedStates)
	if err := parseEnvDuration("DUPWATCH_DEBOUNCE_MS", &cfg.DebounceWait, time.Millisecond); err != nil {
		return cfg, err
	}
	if v := os.Getenv("DUPWATCH_SETTINGS_SCOPE"); v != "" {
		cfg.Scope = settings.Scope(v)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvList parses a comma-separated list, dropping empty entries
func parseEnvList(key string, dest *[]string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dest = out
}

// parseEnvDuration parses a duration from an environment variable
// The multiplier is used to convert the numeric value to a duration
// (e.g., for milliseconds: multiplier = time.Millisecond)
func parseEnvDuration(key string, dest *time.Duration, multiplier time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * multiplier
	return nil
}

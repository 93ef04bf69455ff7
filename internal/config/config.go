package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/dupwatch/internal/deduplication"
	"github.com/steveyegge/dupwatch/internal/fetch"
	"github.com/steveyegge/dupwatch/internal/settings"
)

// DefaultPath is where the CLI looks for its configuration file.
const DefaultPath = ".dupwatch/config.yaml"

// File represents the structure of .dupwatch/config.yaml
type File struct {
	// Organization is the collection URL, e.g. https://dev.azure.com/contoso/
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`

	// TokenEnv names the environment variable holding the access token
	TokenEnv string `yaml:"token_env"`

	// SettingsDB is the SQLite file holding the similarity policy
	SettingsDB string `yaml:"settings_db"`
	Scope      string `yaml:"scope"`

	Deduplication DeduplicationFile `yaml:"deduplication"`
	Fetch         FetchFile         `yaml:"fetch"`
}

// DeduplicationFile holds engine overrides.
type DeduplicationFile struct {
	ChunkSize           int      `yaml:"chunk_size"`
	MaxCandidates       int      `yaml:"max_candidates"`
	MaxConcurrentChunks int      `yaml:"max_concurrent_chunks"`
	ExcludedStates      []string `yaml:"excluded_states"`
	Debounce            string   `yaml:"debounce"` // Duration string like "1s", "750ms"
}

// FetchFile holds HTTP retry and rate limit overrides.
type FetchFile struct {
	MaxRetries        *int    `yaml:"max_retries"`
	BaseDelay         string  `yaml:"base_delay"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config is the resolved CLI configuration.
type Config struct {
	Organization string
	Project      string
	TokenEnv     string
	SettingsDB   string

	Dedup deduplication.Config
	Fetch fetch.Config

	// Timeout bounds one REST call including retries (0 = none)
	Timeout time.Duration

	// RequestsPerSecond limits outgoing requests (0 = unlimited)
	RequestsPerSecond float64
	Burst             int
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		TokenEnv:   "DUPWATCH_TOKEN",
		SettingsDB: ".dupwatch/settings.db",
		Dedup:      deduplication.DefaultConfig(),
		Fetch:      fetch.DefaultConfig(),
		Timeout:    2 * time.Minute,
		Burst:      1,
	}
}

// Load reads path, falling back to defaults when it does not exist, then
// applies environment overrides:
//   - DUPWATCH_ORG_URL: Organization URL
//   - DUPWATCH_PROJECT: Project name
//   - DUPWATCH_TOKEN_ENV: Variable holding the access token
//   - DUPWATCH_SETTINGS_DB: Settings database path
//   - DUPWATCH_* engine variables (see deduplication.ConfigFromEnv)
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		var file File
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := file.apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	parseEnvString("DUPWATCH_ORG_URL", &cfg.Organization)
	parseEnvString("DUPWATCH_PROJECT", &cfg.Project)
	parseEnvString("DUPWATCH_TOKEN_ENV", &cfg.TokenEnv)
	parseEnvString("DUPWATCH_SETTINGS_DB", &cfg.SettingsDB)

	dedup, err := deduplication.ApplyEnv(cfg.Dedup)
	if err != nil {
		return nil, err
	}
	cfg.Dedup = dedup

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply overrides cfg with the values set in the file.
func (f *File) apply(cfg *Config) error {
	if f.Organization != "" {
		cfg.Organization = f.Organization
	}
	if f.Project != "" {
		cfg.Project = f.Project
	}
	if f.TokenEnv != "" {
		cfg.TokenEnv = f.TokenEnv
	}
	if f.SettingsDB != "" {
		cfg.SettingsDB = f.SettingsDB
	}
	if f.Scope != "" {
		cfg.Dedup.Scope = settings.Scope(f.Scope)
	}

	d := f.Deduplication
	if d.ChunkSize > 0 {
		cfg.Dedup.ChunkSize = d.ChunkSize
	}
	if d.MaxCandidates > 0 {
		cfg.Dedup.MaxCandidates = d.MaxCandidates
	}
	if d.MaxConcurrentChunks > 0 {
		cfg.Dedup.MaxConcurrentChunks = d.MaxConcurrentChunks
	}
	if len(d.ExcludedStates) > 0 {
		cfg.Dedup.ExcludedStates = d.ExcludedStates
	}
	if d.Debounce != "" {
		wait, err := time.ParseDuration(d.Debounce)
		if err != nil {
			return fmt.Errorf("invalid debounce: %w", err)
		}
		cfg.Dedup.DebounceWait = wait
	}

	fc := f.Fetch
	if fc.MaxRetries != nil {
		cfg.Fetch.MaxRetries = *fc.MaxRetries
	}
	if fc.BaseDelay != "" {
		delay, err := time.ParseDuration(fc.BaseDelay)
		if err != nil {
			return fmt.Errorf("invalid base_delay: %w", err)
		}
		cfg.Fetch.BaseDelay = delay
	}
	if fc.Timeout != "" {
		timeout, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fc.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = fc.RequestsPerSecond
	}
	if fc.Burst > 0 {
		cfg.Burst = fc.Burst
	}
	return nil
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if err := c.Dedup.Validate(); err != nil {
		return fmt.Errorf("deduplication: %w", err)
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative (got %v)", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative (got %v)", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return fmt.Errorf("burst must be positive when rate limiting (got %d)", c.Burst)
	}
	if c.TokenEnv == "" {
		return fmt.Errorf("token_env cannot be empty")
	}
	return nil
}

// RequireRemote checks the settings needed to reach the tracker.
func (c *Config) RequireRemote() error {
	if c.Organization == "" {
		return fmt.Errorf("organization is not configured (set it in %s or DUPWATCH_ORG_URL)", DefaultPath)
	}
	if c.Project == "" {
		return fmt.Errorf("project is not configured (set it in %s or DUPWATCH_PROJECT)", DefaultPath)
	}
	return nil
}

// Token returns the access token from the configured environment variable.
func (c *Config) Token() string {
	return os.Getenv(c.TokenEnv)
}

// FetchConfig returns the retry configuration with the rate limiter attached.
func (c *Config) FetchConfig() fetch.Config {
	fc := c.Fetch
	if c.RequestsPerSecond > 0 {
		fc.Limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), c.Burst)
	}
	return fc
}

// String returns a human-readable representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Organization: %s, Project: %s, TokenEnv: %s, SettingsDB: %s, "+
			"Dedup: %s, MaxRetries: %d, BaseDelay: %v, Timeout: %v, RPS: %v}",
		c.Organization, c.Project, c.TokenEnv, c.SettingsDB,
		c.Dedup, c.Fetch.MaxRetries, c.Fetch.BaseDelay, c.Timeout, c.RequestsPerSecond,
	)
}

// WriteExample writes ExampleFile to path unless a file already exists there.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(ExampleFile()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ExampleFile returns an example configuration file content.
func ExampleFile() string {
	return `# dupwatch configuration

# Collection URL and project
organization: https://dev.azure.com/contoso/
project: Fabrikam

# Environment variable holding a personal access token (.env files are read too)
token_env: DUPWATCH_TOKEN

# Similarity settings database and scope (Default or User)
settings_db: .dupwatch/settings.db
scope: Default

deduplication:
  chunk_size: 200           # Candidates per batch call (max 200)
  max_candidates: 1000      # Newest open items compared
  max_concurrent_chunks: 0  # 0 fetches every chunk at once
  excluded_states:
    - Closed
  debounce: 1s              # Quiet period after an edit in watch mode

fetch:
  max_retries: 3            # Retries on 503/504 and network errors
  base_delay: 1s            # Retry n waits 2^n * base_delay
  timeout: 2m
  requests_per_second: 0    # 0 disables rate limiting
  burst: 1
`
}

// parseEnvString reads a string from an environment variable
func parseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"embeddings": {"openai", "ollama"},
	"recognizer": {"openai", "anthropic", "gemini", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. File values overlay the defaults from [Default].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("recognizer", cfg.Providers.Recognizer.Name)

	if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("providers.embeddings is not configured; verification runs will fail at startup")
	}

	// Source
	if cfg.Source.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("source.fetch_timeout %v must not be negative", cfg.Source.FetchTimeout))
	}
	if cfg.Source.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("source.max_retries %d must not be negative", cfg.Source.MaxRetries))
	}
	if cfg.Source.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("source.cache_ttl %v must not be negative", cfg.Source.CacheTTL))
	}
	if cfg.Source.PostgresDSN != "" && cfg.Source.EmbeddingDimensions <= 0 {
		slog.Warn("source.postgres_dsn is set but source.embedding_dimensions is not; defaulting to 1536")
	}

	// Verification thresholds
	if t := cfg.Verification.MatchThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("verification.match_threshold %.2f is out of range (0, 1]", t))
	}
	if c := cfg.Verification.MinConfidence; c <= 0 || c > 1 {
		errs = append(errs, fmt.Errorf("verification.min_confidence %.2f is out of range (0, 1]", c))
	}
	if p := cfg.Verification.PhoneticThreshold; p <= 0 || p > 1 {
		errs = append(errs, fmt.Errorf("verification.phonetic_threshold %.2f is out of range (0, 1]", p))
	}
	if cfg.Verification.ExcerptWindow < 0 {
		errs = append(errs, fmt.Errorf("verification.excerpt_window %d must not be negative", cfg.Verification.ExcerptWindow))
	}
	if cfg.Verification.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("verification.max_in_flight %d must be positive", cfg.Verification.MaxInFlight))
	}
	if m := cfg.Verification.ScoreMerge; m != "" && !m.IsValid() {
		errs = append(errs, fmt.Errorf("verification.score_merge %q is invalid; valid values: max, mean", m))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

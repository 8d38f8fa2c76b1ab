package config_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/verdex/internal/config"
)

func TestValidate_NegativeSourceValues(t *testing.T) {
	t.Parallel()
	yaml := `
source:
  fetch_timeout: -1s
  max_retries: -1
  cache_ttl: -24h
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors for negative source values, got nil")
	}
	errStr := err.Error()
	for _, field := range []string{"fetch_timeout", "max_retries", "cache_ttl"} {
		if !strings.Contains(errStr, field) {
			t.Errorf("error should mention %s, got: %v", field, err)
		}
	}
}

func TestValidate_ThresholdRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"match threshold zero", "verification:\n  match_threshold: 0\n", "match_threshold"},
		{"match threshold above one", "verification:\n  match_threshold: 1.5\n", "match_threshold"},
		{"min confidence negative", "verification:\n  min_confidence: -0.1\n", "min_confidence"},
		{"phonetic threshold above one", "verification:\n  phonetic_threshold: 2\n", "phonetic_threshold"},
		{"negative excerpt window", "verification:\n  excerpt_window: -10\n", "excerpt_window"},
		{"zero max in flight", "verification:\n  max_in_flight: 0\n", "max_in_flight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatalf("expected error for %s, got nil", tt.field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error should mention %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidate_BoundaryValuesAreValid(t *testing.T) {
	t.Parallel()
	yaml := `
verification:
  match_threshold: 1.0
  min_confidence: 1.0
  phonetic_threshold: 1.0
  excerpt_window: 0
  max_in_flight: 1
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unexpected error for boundary values: %v", err)
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
verification:
  match_threshold: 7
  max_in_flight: -2
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, field := range []string{"log_level", "match_threshold", "max_in_flight"} {
		if !strings.Contains(errStr, field) {
			t.Errorf("joined error should mention %s, got: %v", field, err)
		}
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	embNames := config.ValidProviderNames["embeddings"]
	if !slices.Contains(embNames, "openai") || !slices.Contains(embNames, "ollama") {
		t.Errorf("ValidProviderNames[\"embeddings\"] = %v, want openai and ollama", embNames)
	}
	recNames := config.ValidProviderNames["recognizer"]
	if !slices.Contains(recNames, "anthropic") {
		t.Errorf("ValidProviderNames[\"recognizer\"] = %v, want anthropic included", recNames)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("testdata/does-not-exist.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// Package compare scores how closely a transcript excerpt matches
// authoritative statute text.
//
// Scoring embeds both texts with the configured provider and takes their
// cosine similarity, normalized from [-1, 1] to [0, 1] so downstream
// thresholds work on an intuitive scale. A statute record that already
// carries a warmed embedding saves one provider call per comparison.
package compare

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/MrWong99/verdex/internal/observe"
	"github.com/MrWong99/verdex/pkg/provider/embeddings"
	"github.com/MrWong99/verdex/pkg/statute"
)

const (
	methodCosine     = "embedding-cosine"
	methodEmptyInput = "empty-input"
)

// Comparator computes similarity scores between transcript excerpts and
// statute text. Safe for concurrent use.
type Comparator struct {
	provider embeddings.Provider
	metrics  *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Comparator)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Comparator) { c.metrics = m }
}

// New creates a [Comparator] backed by the given embedding provider.
func New(provider embeddings.Provider, opts ...Option) *Comparator {
	c := &Comparator{provider: provider}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Compare scores excerpt against the statute record's full text.
//
// Either side being empty yields a zero score without a provider call — there
// is nothing meaningful to embed. A provider failure is returned as an error;
// similarity cannot be judged without the provider, so callers must not treat
// the zero result as a low score.
func (c *Comparator) Compare(ctx context.Context, excerpt string, rec *statute.StatuteRecord) (statute.ComparisonResult, error) {
	result := statute.ComparisonResult{
		NormalizedID:      rec.NormalizedID,
		TranscriptExcerpt: excerpt,
		StatuteExcerpt:    clip(rec.FullText, 300),
	}

	if strings.TrimSpace(excerpt) == "" || strings.TrimSpace(rec.FullText) == "" {
		result.Method = methodEmptyInput
		return result, nil
	}

	start := time.Now()
	excerptVec, statuteVec, err := c.embedPair(ctx, excerpt, rec)
	c.metrics.EmbedDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return statute.ComparisonResult{}, fmt.Errorf("compare: embed texts for %s: %w", rec.NormalizedID, err)
	}

	result.Score = normalizedCosine(excerptVec, statuteVec)
	result.Method = methodCosine
	return result, nil
}

// embedPair embeds the excerpt and, unless the record carries a warmed
// embedding, the statute text — batched into a single provider call when both
// are needed.
func (c *Comparator) embedPair(ctx context.Context, excerpt string, rec *statute.StatuteRecord) (excerptVec, statuteVec []float32, err error) {
	if len(rec.Embedding) > 0 {
		vec, err := c.provider.Embed(ctx, excerpt)
		if err != nil {
			return nil, nil, err
		}
		return vec, rec.Embedding, nil
	}

	vecs, err := c.provider.EmbedBatch(ctx, []string{excerpt, rec.FullText})
	if err != nil {
		return nil, nil, err
	}
	if len(vecs) != 2 {
		return nil, nil, fmt.Errorf("provider returned %d embeddings for 2 inputs", len(vecs))
	}
	return vecs[0], vecs[1], nil
}

// normalizedCosine maps cosine similarity from [-1, 1] onto [0, 1].
// Mismatched or zero-magnitude vectors score 0.
func normalizedCosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Floating point drift can push |cos| a hair past 1.
	cos = math.Max(-1, math.Min(1, cos))
	return (cos + 1) / 2
}

// clip truncates s to at most n bytes on a rune boundary, appending an
// ellipsis when truncated.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n] + "…"
}

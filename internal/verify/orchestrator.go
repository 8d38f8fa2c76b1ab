// Package verify wires extraction, resolution, comparison and classification
// into the end-to-end transcript verification pipeline.
package verify

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/verdex/internal/classify"
	"github.com/MrWong99/verdex/internal/compare"
	"github.com/MrWong99/verdex/internal/extract"
	"github.com/MrWong99/verdex/internal/gateway"
	"github.com/MrWong99/verdex/internal/observe"
	"github.com/MrWong99/verdex/pkg/statute"
)

// ScoreMerge selects how per-mention similarity scores combine into the
// verdict score for a statute cited several times.
type ScoreMerge string

const (
	// MergeMax takes the best-scoring mention. One faithful quotation
	// outweighs any number of loose paraphrases of the same statute.
	MergeMax ScoreMerge = "max"

	// MergeMean averages the mention scores.
	MergeMean ScoreMerge = "mean"
)

const (
	defaultExcerptWindow = 200
	defaultMaxInFlight   = 4
)

// Orchestrator runs the verification pipeline. It is read-only after
// construction and safe for concurrent use; a single instance serves any
// number of simultaneous transcripts.
type Orchestrator struct {
	extractor  *extract.Extractor
	gateway    *gateway.Gateway
	comparator *compare.Comparator
	classifier *classify.Classifier
	metrics    *observe.Metrics

	excerptWindow int
	maxInFlight   int
	merge         ScoreMerge
}

// Option is a functional option for [New].
type Option func(*Orchestrator)

// WithExcerptWindow sets how many bytes of context on each side of a mention
// go into the compared excerpt. Default: 200.
func WithExcerptWindow(n int) Option {
	return func(o *Orchestrator) { o.excerptWindow = n }
}

// WithMaxInFlight bounds how many statutes are resolved and compared
// concurrently per transcript. Default: 4.
func WithMaxInFlight(n int) Option {
	return func(o *Orchestrator) { o.maxInFlight = n }
}

// WithScoreMerge selects the per-statute score merge strategy. Default: [MergeMax].
func WithScoreMerge(m ScoreMerge) Option {
	return func(o *Orchestrator) { o.merge = m }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an [Orchestrator] over the four pipeline stages.
func New(ex *extract.Extractor, gw *gateway.Gateway, cmp *compare.Comparator, cl *classify.Classifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor:     ex,
		gateway:       gw,
		comparator:    cmp,
		classifier:    cl,
		excerptWindow: defaultExcerptWindow,
		maxInFlight:   defaultMaxInFlight,
		merge:         MergeMax,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// group collects every mention of one normalized id.
type group struct {
	id   string
	refs []statute.Reference
}

// Verify runs the full pipeline over a transcript and returns one
// [statute.Result] per distinct statute id, ordered by first occurrence.
//
// Resolution failures become unresolved verdicts rather than errors; Verify
// itself fails only on context cancellation or when the comparator is
// unavailable, since without it no matched/discrepant call is trustworthy.
// A transcript with no references yields an empty slice and nil error.
func (o *Orchestrator) Verify(ctx context.Context, transcript string) ([]statute.Result, error) {
	start := time.Now()
	defer func() {
		o.metrics.VerifyDuration.Record(ctx, time.Since(start).Seconds())
	}()

	refs, err := o.extractor.Extract(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("verify: extract references: %w", err)
	}
	for _, r := range refs {
		o.metrics.RecordReference(ctx, string(r.Layer))
	}

	groups := groupByID(refs)
	results := make([]statute.Result, len(groups))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.maxInFlight)
	for i, grp := range groups {
		eg.Go(func() error {
			res, err := o.verifyGroup(ctx, transcript, grp)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		o.metrics.RecordVerdict(ctx, string(res.Verdict.Status))
	}
	return results, nil
}

// verifyGroup resolves, compares and classifies all mentions of one id.
func (o *Orchestrator) verifyGroup(ctx context.Context, transcript string, grp group) (statute.Result, error) {
	res := statute.Result{
		NormalizedID: grp.id,
		Mentions:     mentions(grp.refs),
	}
	confidence := maxConfidence(grp.refs)

	rec, resolveErr := o.gateway.Resolve(ctx, grp.id)
	if resolveErr != nil {
		// A cancelled run aborts; it must never surface as a verdict
		// blaming the source.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return statute.Result{}, ctxErr
		}
		res.Verdict = o.classifier.Classify(confidence, resolveErr,
			statute.ComparisonResult{NormalizedID: grp.id})
		return res, nil
	}

	res.CanonicalTitle = rec.Title
	res.CanonicalURL = rec.SourceURL
	res.Origin = rec.Origin
	res.CachedAt = rec.FetchedAt

	best := statute.ComparisonResult{NormalizedID: grp.id}
	var sum float64
	for i, ref := range grp.refs {
		excerpt := excerptAround(transcript, ref.Span, o.excerptWindow)
		cmp, err := o.comparator.Compare(ctx, excerpt, rec)
		if err != nil {
			return statute.Result{}, fmt.Errorf("verify: compare %s: %w", grp.id, err)
		}
		sum += cmp.Score
		if i == 0 || cmp.Score > best.Score {
			best = cmp
		}
	}
	if o.merge == MergeMean && len(grp.refs) > 0 {
		best.Score = sum / float64(len(grp.refs))
	}

	res.Verdict = o.classifier.Classify(confidence, nil, best)
	return res, nil
}

// Lookup resolves one statute id directly, bypassing extraction.
func (o *Orchestrator) Lookup(ctx context.Context, rawID string) (*statute.StatuteRecord, error) {
	id := extract.NormalizeID(rawID)
	if id == "" {
		return nil, fmt.Errorf("verify: %q is not a usable statute identifier", rawID)
	}
	return o.gateway.Resolve(ctx, id)
}

// groupByID buckets references by normalized id, preserving first-occurrence
// order. Extraction output is span-ordered, so the bucket order is stable for
// a given transcript.
func groupByID(refs []statute.Reference) []group {
	index := make(map[string]int)
	var groups []group
	for _, r := range refs {
		i, ok := index[r.NormalizedID]
		if !ok {
			i = len(groups)
			index[r.NormalizedID] = i
			groups = append(groups, group{id: r.NormalizedID})
		}
		groups[i].refs = append(groups[i].refs, r)
	}
	return groups
}

func mentions(refs []statute.Reference) []statute.Mention {
	ms := make([]statute.Mention, len(refs))
	for i, r := range refs {
		ms[i] = statute.Mention{Text: r.Raw, Span: r.Span, Confidence: r.Confidence}
	}
	return ms
}

func maxConfidence(refs []statute.Reference) float64 {
	var best float64
	for _, r := range refs {
		if r.Confidence > best {
			best = r.Confidence
		}
	}
	return best
}

// excerptAround returns the transcript slice extending window bytes on each
// side of the span, clamped to the text and snapped outward to rune
// boundaries.
func excerptAround(text string, span statute.Span, window int) string {
	start := span.Start - window
	if start < 0 {
		start = 0
	}
	end := span.End + window
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return text[start:end]
}

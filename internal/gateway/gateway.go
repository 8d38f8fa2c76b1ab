// Package gateway resolves normalized statute identifiers to authoritative
// statute text.
//
// Resolution order: cache (fresh entry wins outright), then a single-flight
// live fetch against the statute source, then a stale cache entry as last
// resort when the live fetch fails. Definitive misses (404) are never
// retried. A successful live fetch replaces the cache entry wholesale and may
// warm a text embedding so later comparisons skip one provider round trip.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/verdex/internal/observe"
	"github.com/MrWong99/verdex/pkg/provider/embeddings"
	"github.com/MrWong99/verdex/pkg/statute"
)

// DefaultBaseURL is the Florida statutes site the default configuration
// points at.
const DefaultBaseURL = "http://www.leg.state.fl.us/statutes"

// DefaultTTL is how long a cached statute text is considered fresh. Statute
// text changes on legislative timescales; a month-long TTL keeps the cache
// hot without serving text from a superseded session indefinitely.
const DefaultTTL = 720 * time.Hour

// FailureKind partitions resolution failures by how the caller should react.
type FailureKind string

const (
	// KindUnreachable covers network failures, timeouts, server errors and
	// an open circuit breaker. Retrying later may succeed.
	KindUnreachable FailureKind = "unreachable"

	// KindNotFound means the source definitively reported no such statute.
	KindNotFound FailureKind = "not_found"

	// KindParseError means a document was fetched but its structure was not
	// recognizable as a statute page.
	KindParseError FailureKind = "parse_error"
)

// ResolveError is the failure type returned by [Gateway.Resolve]. The Kind
// lets the verification layer distinguish "try again later" from "this
// statute does not exist".
type ResolveError struct {
	NormalizedID string
	Kind         FailureKind
	Err          error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("gateway: resolve %s: %s: %v", e.NormalizedID, e.Kind, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Gateway resolves statute identifiers to [statute.StatuteRecord] values. It
// is safe for concurrent use; concurrent resolutions of the same id share a
// single live fetch.
type Gateway struct {
	cache    Cache
	fetcher  Fetcher
	embedder embeddings.Provider
	metrics  *observe.Metrics
	baseURL  string
	ttl      time.Duration
	now      func() time.Time
	flight   singleflight.Group
}

// Option is a functional option for [New].
type Option func(*Gateway)

// WithBaseURL overrides the statute source base URL. Default: [DefaultBaseURL].
func WithBaseURL(u string) Option {
	return func(g *Gateway) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithTTL overrides the cache freshness window. Default: [DefaultTTL].
func WithTTL(d time.Duration) Option {
	return func(g *Gateway) { g.ttl = d }
}

// WithEmbedder attaches an embedding provider used to warm statute-text
// embeddings on live fetches. Warming is best effort; failures are logged and
// the record is cached without an embedding.
func WithEmbedder(p embeddings.Provider) Option {
	return func(g *Gateway) { g.embedder = p }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithClock overrides the time source, for tests exercising TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates a [Gateway] over the given cache and fetcher.
func New(cache Cache, fetcher Fetcher, opts ...Option) *Gateway {
	g := &Gateway{
		cache:   cache,
		fetcher: fetcher,
		baseURL: DefaultBaseURL,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}
	return g
}

// Resolve returns the authoritative record for a normalized statute id.
//
// A fresh cache entry is returned without touching the network. Otherwise a
// live fetch runs (shared across concurrent callers of the same id); on
// success the cache is replaced and the record returned with [statute.OriginLive].
// If the live fetch fails and an expired entry exists, that entry is returned
// with [statute.OriginStale] instead of an error. Only when the cache has
// nothing at all does Resolve fail, always with a *[ResolveError].
func (g *Gateway) Resolve(ctx context.Context, id string) (*statute.StatuteRecord, error) {
	entry, err := g.cache.Get(ctx, id)
	if err != nil {
		slog.Warn("gateway: cache read failed; treating as miss", "id", id, "err", err)
		entry = nil
	}

	switch {
	case entry == nil:
		g.metrics.RecordCacheLookup(ctx, "miss")
	case !entry.Expired(g.now()):
		g.metrics.RecordCacheLookup(ctx, "hit")
		rec := entry.Record
		rec.Origin = statute.OriginCache
		return &rec, nil
	default:
		g.metrics.RecordCacheLookup(ctx, "expired")
	}

	v, fetchErr, _ := g.flight.Do(id, func() (any, error) {
		g.cache.Pin(id)
		defer g.cache.Unpin(id)
		return g.fetchLive(ctx, id)
	})
	if fetchErr == nil {
		rec := v.(statute.StatuteRecord)
		return &rec, nil
	}

	// The fetch failed. An expired entry beats no answer.
	if entry == nil {
		if entry, err = g.cache.Get(ctx, id); err != nil {
			entry = nil
		}
	}
	if entry != nil {
		g.metrics.RecordCacheLookup(ctx, "stale")
		slog.Warn("gateway: serving stale statute text after failed refresh",
			"id", id,
			"fetched_at", entry.Record.FetchedAt,
			"err", fetchErr)
		rec := entry.Record
		rec.Origin = statute.OriginStale
		return &rec, nil
	}
	return nil, fetchErr
}

// fetchLive fetches, parses and caches the document for id. All failures are
// wrapped in *[ResolveError].
func (g *Gateway) fetchLive(ctx context.Context, id string) (statute.StatuteRecord, error) {
	docURL := g.DocumentURL(id)

	start := g.now()
	body, err := g.fetcher.FetchDocument(ctx, docURL)
	g.metrics.FetchDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		g.metrics.RecordSourceRequest(ctx, "error")
		kind := KindUnreachable
		if errors.Is(err, ErrNotFound) {
			kind = KindNotFound
		}
		return statute.StatuteRecord{}, &ResolveError{NormalizedID: id, Kind: kind, Err: err}
	}
	g.metrics.RecordSourceRequest(ctx, "ok")

	doc, err := parseDocument(body)
	if err != nil {
		return statute.StatuteRecord{}, &ResolveError{NormalizedID: id, Kind: KindParseError, Err: err}
	}

	rec := statute.StatuteRecord{
		NormalizedID: id,
		Title:        doc.Title,
		FullText:     doc.Text,
		SourceURL:    docURL,
		FetchedAt:    g.now(),
		Origin:       statute.OriginLive,
	}

	if g.embedder != nil {
		embedStart := g.now()
		vec, err := g.embedder.Embed(ctx, rec.FullText)
		g.metrics.EmbedDuration.Record(ctx, time.Since(embedStart).Seconds())
		if err != nil {
			slog.Warn("gateway: embedding warm-up failed; caching record without embedding",
				"id", id, "err", err)
		} else {
			rec.Embedding = vec
		}
	}

	entry := &Entry{Record: rec, ExpiresAt: rec.FetchedAt.Add(g.ttl)}
	if err := g.cache.Put(ctx, entry); err != nil {
		slog.Warn("gateway: cache write failed; record served uncached", "id", id, "err", err)
	}
	return rec, nil
}

var chapterSectionRe = regexp.MustCompile(`^(\d+)\.(\d+)$`)
var leadingDigitsRe = regexp.MustCompile(`^\d+`)

// DocumentURL builds the source URL for a normalized statute id following the
// Florida statutes layout: chapters are grouped into hundred-blocks and
// zero-padded to four digits, e.g. 456.013 maps to
// 0400-0499/0456/Sections/0456.013.html.
//
// Chapter-only ids ("456", "32B") map to the chapter index page; ids without
// any digits fall back to the site search.
func (g *Gateway) DocumentURL(id string) string {
	if m := chapterSectionRe.FindStringSubmatch(id); m != nil {
		chapter, _ := strconv.Atoi(m[1])
		return fmt.Sprintf(
			"%s/index.cfm?App_mode=Display_Statute&Search_String=&URL=%s/%04d/Sections/%04d.%s.html",
			g.baseURL, chapterRange(chapter), chapter, chapter, m[2])
	}

	if digits := leadingDigitsRe.FindString(id); digits != "" {
		chapter, _ := strconv.Atoi(digits)
		return fmt.Sprintf(
			"%s/index.cfm?App_mode=Display_Statute&Search_String=&URL=%s/%s/0%s.html",
			g.baseURL, chapterRange(chapter), id, id)
	}

	return fmt.Sprintf("%s/index.cfm?App_mode=Display_Statute&Search_String=%s",
		g.baseURL, url.QueryEscape(id))
}

// chapterRange returns the hundred-block directory name for a chapter,
// e.g. 456 -> "0400-0499".
func chapterRange(chapter int) string {
	base := (chapter / 100) * 100
	return fmt.Sprintf("%04d-%04d", base, base+99)
}

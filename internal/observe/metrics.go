// Package observe provides application-wide observability primitives for
// verdex: OpenTelemetry metrics and the SDK provider setup that bridges them
// to Prometheus.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all verdex metrics.
const meterName = "github.com/MrWong99/verdex"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// FetchDuration tracks authoritative-source document fetch latency.
	FetchDuration metric.Float64Histogram

	// EmbedDuration tracks embedding provider call latency.
	EmbedDuration metric.Float64Histogram

	// VerifyDuration tracks end-to-end transcript verification latency.
	VerifyDuration metric.Float64Histogram

	// HTTPRequestDuration tracks latency of the operational HTTP endpoints
	// (metrics scrape, health probes).
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// CacheLookups counts statute cache lookups. Use with attribute:
	//   attribute.String("result", "hit"|"miss"|"expired"|"stale")
	CacheLookups metric.Int64Counter

	// SourceRequests counts live fetch attempts against the statute source.
	// Use with attribute.String("status", "ok"|"error").
	SourceRequests metric.Int64Counter

	// Verdicts counts produced verdicts. Use with
	// attribute.String("status", "matched"|"discrepant"|"unresolved").
	Verdicts metric.Int64Counter

	// References counts extracted references by extraction layer. Use with
	// attribute.String("layer", ...).
	References metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote fetches and embedding calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FetchDuration, err = m.Float64Histogram("verdex.source.fetch.duration",
		metric.WithDescription("Latency of authoritative statute document fetches."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbedDuration, err = m.Float64Histogram("verdex.embeddings.duration",
		metric.WithDescription("Latency of embedding provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VerifyDuration, err = m.Float64Histogram("verdex.verify.duration",
		metric.WithDescription("End-to-end transcript verification latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("verdex.http.request.duration",
		metric.WithDescription("Latency of operational HTTP requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.CacheLookups, err = m.Int64Counter("verdex.cache.lookups",
		metric.WithDescription("Statute cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.SourceRequests, err = m.Int64Counter("verdex.source.requests",
		metric.WithDescription("Live statute source fetch attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.Verdicts, err = m.Int64Counter("verdex.verdicts",
		metric.WithDescription("Verdicts produced by status."),
	); err != nil {
		return nil, err
	}
	if met.References, err = m.Int64Counter("verdex.references.extracted",
		metric.WithDescription("Extracted statute references by extraction layer."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCacheLookup records a cache lookup with its result attribute.
func (m *Metrics) RecordCacheLookup(ctx context.Context, result string) {
	m.CacheLookups.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordSourceRequest records a live fetch attempt with its status attribute.
func (m *Metrics) RecordSourceRequest(ctx context.Context, status string) {
	m.SourceRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordVerdict records a produced verdict by status.
func (m *Metrics) RecordVerdict(ctx context.Context, status string) {
	m.Verdicts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordReference records an extracted reference by layer.
func (m *Metrics) RecordReference(ctx context.Context, layer string) {
	m.References.Add(ctx, 1,
		metric.WithAttributes(attribute.String("layer", layer)),
	)
}

// Package app wires all verdex subsystems into a runnable engine.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems from the config, Verify and Lookup run the pipeline, and Close
// tears everything down.
//
// For testing, inject mock implementations via functional options
// (WithCache, WithFetcher, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/verdex/internal/classify"
	"github.com/MrWong99/verdex/internal/compare"
	"github.com/MrWong99/verdex/internal/config"
	"github.com/MrWong99/verdex/internal/extract"
	"github.com/MrWong99/verdex/internal/gateway"
	gwpostgres "github.com/MrWong99/verdex/internal/gateway/postgres"
	"github.com/MrWong99/verdex/internal/health"
	"github.com/MrWong99/verdex/internal/resilience"
	"github.com/MrWong99/verdex/internal/verify"
	"github.com/MrWong99/verdex/pkg/provider/embeddings"
	"github.com/MrWong99/verdex/pkg/provider/recognizer"
	"github.com/MrWong99/verdex/pkg/statute"
)

// defaultEmbeddingDimensions matches OpenAI text-embedding-3-small, the most
// common embeddings configuration.
const defaultEmbeddingDimensions = 1536

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main via the config registry.
type Providers struct {
	Embeddings embeddings.Provider
	Recognizer recognizer.Provider
}

// App owns all subsystem lifetimes and runs the verification pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	cache        gateway.Cache
	fetcher      gateway.Fetcher
	orchestrator *verify.Orchestrator

	// closers run in reverse order on Close.
	closers []func()
}

// Option overrides a subsystem during construction, for tests.
type Option func(*App)

// WithCache replaces the statute cache built from the config.
func WithCache(c gateway.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithFetcher replaces the HTTP fetcher built from the config.
func WithFetcher(f gateway.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// New assembles the verification engine from cfg and the instantiated
// providers. An embeddings provider is required; the recognizer is optional.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Embeddings == nil {
		return nil, fmt.Errorf("app: an embeddings provider is required for similarity scoring")
	}

	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}

	if a.cache == nil {
		cache, err := buildCache(ctx, cfg, providers.Embeddings)
		if err != nil {
			return nil, err
		}
		a.cache = cache
		if pg, ok := cache.(*gwpostgres.Cache); ok {
			a.closers = append(a.closers, pg.Close)
		}
	}

	if a.fetcher == nil {
		breaker := resilience.NewBreaker(resilience.Config{
			Name:      "statute-source",
			Threshold: cfg.Source.BreakerThreshold,
			Cooldown:  cfg.Source.BreakerCooldown,
		})
		a.fetcher = gateway.NewHTTPFetcher(
			gateway.WithFetchTimeout(cfg.Source.FetchTimeout),
			gateway.WithMaxRetries(cfg.Source.MaxRetries),
			gateway.WithRetryBackoff(cfg.Source.RetryBackoff),
			gateway.WithBreaker(breaker),
		)
	}

	gwOpts := []gateway.Option{
		gateway.WithTTL(cfg.Source.CacheTTL),
		gateway.WithEmbedder(providers.Embeddings),
	}
	if cfg.Source.BaseURL != "" {
		gwOpts = append(gwOpts, gateway.WithBaseURL(cfg.Source.BaseURL))
	}
	gw := gateway.New(a.cache, a.fetcher, gwOpts...)

	exOpts := []extract.Option{
		extract.WithPhoneticThreshold(cfg.Verification.PhoneticThreshold),
	}
	if providers.Recognizer != nil {
		exOpts = append(exOpts, extract.WithRecognizer(providers.Recognizer))
	}
	extractor := extract.New(exOpts...)

	comparator := compare.New(providers.Embeddings)
	classifier := classify.New(classify.Thresholds{
		MinConfidence:  cfg.Verification.MinConfidence,
		MatchThreshold: cfg.Verification.MatchThreshold,
	})

	a.orchestrator = verify.New(extractor, gw, comparator, classifier,
		verify.WithExcerptWindow(cfg.Verification.ExcerptWindow),
		verify.WithMaxInFlight(cfg.Verification.MaxInFlight),
		verify.WithScoreMerge(verify.ScoreMerge(cfg.Verification.ScoreMerge)),
	)

	slog.Info("verdex engine assembled",
		"cache", cacheKind(cfg),
		"recognizer", providers.Recognizer != nil,
		"embeddings_model", providers.Embeddings.ModelID(),
	)
	return a, nil
}

// Verify runs the full pipeline over a transcript.
func (a *App) Verify(ctx context.Context, transcript string) ([]statute.Result, error) {
	return a.orchestrator.Verify(ctx, transcript)
}

// Lookup resolves one statute id directly.
func (a *App) Lookup(ctx context.Context, id string) (*statute.StatuteRecord, error) {
	return a.orchestrator.Lookup(ctx, id)
}

// HealthCheckers returns readiness checks for the operational HTTP endpoints:
// the embedding model must report a usable dimension and, when configured,
// the durable cache must answer a ping.
func (a *App) HealthCheckers() []health.Checker {
	checks := []health.Checker{{
		Name: "embeddings",
		Check: func(context.Context) error {
			if a.providers.Embeddings.Dimensions() <= 0 {
				return fmt.Errorf("embedding model %q reports no dimensions", a.providers.Embeddings.ModelID())
			}
			return nil
		},
	}}
	if pg, ok := a.cache.(*gwpostgres.Cache); ok {
		checks = append(checks, health.Checker{Name: "statute_cache", Check: pg.Ping})
	}
	return checks
}

// Close tears down owned subsystems in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildCache selects the durable PostgreSQL cache when a DSN is configured,
// otherwise the in-memory LRU.
func buildCache(ctx context.Context, cfg *config.Config, emb embeddings.Provider) (gateway.Cache, error) {
	if cfg.Source.PostgresDSN == "" {
		return gateway.NewMemoryCache(cfg.Source.CacheCapacity), nil
	}

	dims := cfg.Source.EmbeddingDimensions
	if dims <= 0 {
		if dims = emb.Dimensions(); dims <= 0 {
			dims = defaultEmbeddingDimensions
		}
	}
	cache, err := gwpostgres.NewCache(ctx, cfg.Source.PostgresDSN, dims)
	if err != nil {
		return nil, fmt.Errorf("app: build statute cache: %w", err)
	}
	return cache, nil
}

func cacheKind(cfg *config.Config) string {
	if cfg.Source.PostgresDSN != "" {
		return "postgres"
	}
	return "memory"
}

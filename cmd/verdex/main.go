// Command verdex verifies statute citations in legal-proceeding transcripts
// against the authoritative statute text.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/verdex/internal/app"
	"github.com/MrWong99/verdex/internal/config"
	"github.com/MrWong99/verdex/internal/health"
	"github.com/MrWong99/verdex/internal/observe"
	"github.com/MrWong99/verdex/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	transcriptPath := flag.String("transcript", "", "transcript file to verify ('-' reads stdin)")
	lookupID := flag.String("lookup", "", "resolve a single statute id instead of verifying a transcript")
	annotatePath := flag.String("annotate", "", "also write the transcript as an HTML fragment with citations marked")
	flag.Parse()

	if *transcriptPath == "" && *lookupID == "" {
		fmt.Fprintln(os.Stderr, "verdex: nothing to do — pass -transcript or -lookup")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "verdex: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "verdex: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("verdex starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	providers, err := buildProviders(cfg, config.DefaultRegistry())
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	engine, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to assemble engine", "err", err)
		return 1
	}
	defer engine.Close()

	if cfg.Server.MetricsAddr != "" {
		go serveOps(cfg.Server.MetricsAddr, engine.HealthCheckers())
	}

	if *lookupID != "" {
		return runLookup(ctx, engine, *lookupID)
	}
	return runVerify(ctx, engine, *transcriptPath, *annotatePath)
}

// runLookup resolves one statute id and prints the record as JSON.
func runLookup(ctx context.Context, engine *app.App, id string) int {
	rec, err := engine.Lookup(ctx, id)
	if err != nil {
		slog.Error("lookup failed", "id", id, "err", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		slog.Error("encode record", "err", err)
		return 1
	}
	return 0
}

// runVerify verifies a transcript and writes the JSON report to stdout,
// optionally writing the annotated transcript alongside.
func runVerify(ctx context.Context, engine *app.App, transcriptPath, annotatePath string) int {
	transcript, err := readTranscript(transcriptPath)
	if err != nil {
		slog.Error("read transcript", "path", transcriptPath, "err", err)
		return 1
	}

	results, err := engine.Verify(ctx, transcript)
	if err != nil {
		slog.Error("verification failed", "err", err)
		return 1
	}

	rep := report.Build(results, time.Now().UTC())
	if err := rep.WriteJSON(os.Stdout); err != nil {
		slog.Error("write report", "err", err)
		return 1
	}

	if annotatePath != "" {
		html := report.Highlight(transcript, results)
		if err := os.WriteFile(annotatePath, []byte(html), 0o644); err != nil {
			slog.Error("write annotated transcript", "path", annotatePath, "err", err)
			return 1
		}
		slog.Info("annotated transcript written", "path", annotatePath)
	}

	slog.Info("verification complete",
		"statutes", rep.Summary.Total,
		"matched", rep.Summary.Matched,
		"discrepant", rep.Summary.Discrepant,
		"unresolved", rep.Summary.Unresolved,
	)
	return 0
}

// buildProviders instantiates the providers named in cfg using the registry.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		ps.Embeddings = p
		slog.Info("provider created", "kind", "embeddings", "name", name)
	}

	if name := cfg.Providers.Recognizer.Name; name != "" {
		p, err := reg.CreateRecognizer(cfg.Providers.Recognizer)
		if err != nil {
			return nil, fmt.Errorf("create recognizer provider %q: %w", name, err)
		}
		ps.Recognizer = p
		slog.Info("provider created", "kind", "recognizer", "name", name)
	}

	return ps, nil
}

// readTranscript reads the transcript from path, or stdin when path is "-".
func readTranscript(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// serveOps exposes the operational endpoints: Prometheus /metrics plus the
// /healthz and /readyz probes, all behind the tracing middleware.
func serveOps(addr string, checkers []health.Checker) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)

	handler := observe.Middleware(observe.DefaultMetrics())(mux)
	slog.Info("ops endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("ops endpoint error", "err", err)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// Command accentor is the main entry point for the Accentor pronunciation
// assessment server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/accentor-ai/accentor/internal/coach"
	"github.com/accentor-ai/accentor/internal/config"
	"github.com/accentor-ai/accentor/internal/export"
	"github.com/accentor-ai/accentor/internal/health"
	"github.com/accentor-ai/accentor/internal/observe"
	"github.com/accentor-ai/accentor/internal/server"
	"github.com/accentor-ai/accentor/pkg/analysis"
	"github.com/accentor-ai/accentor/pkg/provider/stt"
	oaistt "github.com/accentor-ai/accentor/pkg/provider/stt/openai"
	"github.com/accentor-ai/accentor/pkg/session"
	"github.com/accentor-ai/accentor/pkg/session/memstore"
	"github.com/accentor-ai/accentor/pkg/session/postgres"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "accentor: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "accentor: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("accentor starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "accentor",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Transcription provider (optional) ─────────────────────────────────────
	sttProvider, err := buildSTT(cfg, metrics)
	if err != nil {
		slog.Error("failed to create stt provider", "err", err)
		return 1
	}

	// ── Analyzer ──────────────────────────────────────────────────────────────
	analyzerOpts := []analysis.Option{}
	if sttProvider != nil {
		analyzerOpts = append(analyzerOpts, analysis.WithProvider(sttProvider))
	}
	if cfg.Scoring.CorrectThreshold > 0 {
		analyzerOpts = append(analyzerOpts, analysis.WithCorrectThreshold(cfg.Scoring.CorrectThreshold))
	}
	if cfg.STT.TimeoutSeconds > 0 {
		analyzerOpts = append(analyzerOpts,
			analysis.WithTranscribeTimeout(time.Duration(cfg.STT.TimeoutSeconds)*time.Second))
	}
	if cfg.Coach.Enabled {
		c, err := buildCoach(cfg)
		if err != nil {
			slog.Error("failed to create coach", "err", err)
			return 1
		}
		analyzerOpts = append(analyzerOpts, analysis.WithCoach(c))
		slog.Info("coach enabled", "provider", cfg.Coach.Provider, "model", cfg.Coach.Model)
	}
	analyzer := analysis.New(analyzerOpts...)

	// ── Storage ───────────────────────────────────────────────────────────────
	conversations, attempts, probes, err := buildStores(ctx, cfg)
	if err != nil {
		slog.Error("failed to create store", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	serverOpts := []server.Option{
		server.WithConversationStore(conversations),
		server.WithAttemptStore(attempts),
		server.WithDefaultLanguage(cfg.STT.Language),
		server.WithAudioEnabled(sttProvider != nil),
		server.WithProbes(probes...),
	}
	if cfg.Scoring.CorrectThreshold > 0 {
		serverOpts = append(serverOpts, server.WithCorrectThreshold(cfg.Scoring.CorrectThreshold))
	}
	if cfg.Export.Path != "" {
		serverOpts = append(serverOpts, server.WithExport(export.NewFileStore(cfg.Export.Path)))
		slog.Info("attempt export enabled", "path", cfg.Export.Path)
	}
	srv := server.New(cfg.Server.ListenAddr, analyzer, metrics, serverOpts...)

	slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// buildSTT creates the transcription provider named in cfg, instrumented with
// metrics. Returns nil when no provider is configured; the server then serves
// only pre-transcribed attempts.
func buildSTT(cfg *config.Config, metrics *observe.Metrics) (stt.Provider, error) {
	switch cfg.STT.Provider {
	case "":
		slog.Info("no stt provider configured — audio endpoint disabled")
		return nil, nil
	case "openai":
		apiKey := cfg.STT.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		var opts []oaistt.Option
		if cfg.STT.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(cfg.STT.BaseURL))
		}
		if cfg.STT.Model != "" {
			opts = append(opts, oaistt.WithModel(cfg.STT.Model))
		}
		p, err := oaistt.New(apiKey, opts...)
		if err != nil {
			return nil, err
		}
		slog.Info("stt provider created", "name", "openai", "model", cfg.STT.Model)
		return observe.InstrumentSTT(p, "openai", metrics), nil
	default:
		return nil, fmt.Errorf("unsupported stt provider %q", cfg.STT.Provider)
	}
}

// buildCoach creates the LLM coach stage named in cfg.
func buildCoach(cfg *config.Config) (*coach.Coach, error) {
	var opts []anyllmlib.Option
	if cfg.Coach.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.Coach.APIKey))
	}
	completer, err := coach.NewCompleter(cfg.Coach.Provider, cfg.Coach.Model, opts...)
	if err != nil {
		return nil, err
	}
	// The guard keeps a dead LLM backend from adding latency to every attempt.
	return coach.New(coach.Guard(completer)), nil
}

// buildStores creates the conversation and attempt stores for the configured
// driver, along with the readiness probes the backend supports.
func buildStores(ctx context.Context, cfg *config.Config) (session.ConversationStore, session.AttemptStore, []health.Probe, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		st, err := postgres.NewStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("store created", "driver", "postgres")
		return st, st, []health.Probe{health.StoreProbe("store", st)}, nil
	default:
		st := memstore.New()
		slog.Info("store created", "driver", "memory")
		return st, st, nil, nil
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

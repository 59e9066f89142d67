// Package server exposes the Accentor analysis engine over HTTP.
//
// The engine itself defines no wire format; this package is the thin
// collaborator shell around it: JSON endpoints for scoring attempts, a
// WebSocket endpoint for live practice, session history, health and
// Prometheus metrics. All handlers are wrapped in the observability
// middleware from [observe].
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/accentor-ai/accentor/internal/export"
	"github.com/accentor-ai/accentor/internal/health"
	"github.com/accentor-ai/accentor/internal/observe"
	"github.com/accentor-ai/accentor/pkg/analysis"
	"github.com/accentor-ai/accentor/pkg/scoring"
	"github.com/accentor-ai/accentor/pkg/session"
)

const shutdownGrace = 10 * time.Second

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithAttemptStore attaches an attempt archive. Without one, results are
// returned to the caller but not persisted.
func WithAttemptStore(s session.AttemptStore) Option {
	return func(srv *Server) { srv.attempts = s }
}

// WithConversationStore attaches a conversation log that records each
// attempt as a learner/tutor turn pair.
func WithConversationStore(s session.ConversationStore) Option {
	return func(srv *Server) { srv.conversations = s }
}

// WithExport attaches the local JSONL attempt log.
func WithExport(fs *export.FileStore) Option {
	return func(srv *Server) { srv.export = fs }
}

// WithDefaultLanguage sets the recognition language used when an audio
// request does not specify one.
func WithDefaultLanguage(lang string) Option {
	return func(srv *Server) { srv.defaultLanguage = lang }
}

// WithAudioEnabled controls whether the audio endpoint is served. It should
// be enabled only when the analyzer carries a transcription provider.
func WithAudioEnabled(enabled bool) Option {
	return func(srv *Server) { srv.audioEnabled = enabled }
}

// WithCorrectThreshold aligns the interim live-frame scorer with the
// analyzer's per-word correctness threshold.
func WithCorrectThreshold(threshold int) Option {
	return func(srv *Server) {
		srv.liveScorer = scoring.NewScorer(scoring.WithCorrectThreshold(threshold))
	}
}

// WithProbes registers readiness probes served on /readyz.
func WithProbes(probes ...health.Probe) Option {
	return func(srv *Server) { srv.probes = probes }
}

// Server is the Accentor HTTP server. Construct with [New]; all handler
// state is read-only after construction.
type Server struct {
	addr     string
	analyzer *analysis.Analyzer
	metrics  *observe.Metrics

	attempts        session.AttemptStore
	conversations   session.ConversationStore
	export          *export.FileStore
	liveScorer      *scoring.Scorer
	probes          []health.Probe
	defaultLanguage string
	audioEnabled    bool
}

// New constructs a [Server] listening on addr, backed by the given analyzer.
func New(addr string, analyzer *analysis.Analyzer, m *observe.Metrics, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		analyzer:        analyzer,
		metrics:         m,
		liveScorer:      scoring.NewScorer(),
		defaultLanguage: "en",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the fully wired HTTP handler, wrapped in the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/attempts", s.handleAnalyze)
	mux.HandleFunc("GET /v1/sessions/{id}/attempts", s.handleListAttempts)
	mux.HandleFunc("GET /v1/live", s.handleLive)
	mux.Handle("GET /metrics", promhttp.Handler())

	health.New(s.probes...).Register(mux)

	if s.audioEnabled {
		mux.HandleFunc("POST /v1/attempts/audio", s.handleAnalyzeAudio)
	}

	return observe.Middleware(s.metrics)(mux)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

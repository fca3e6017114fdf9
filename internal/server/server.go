// Package server exposes the assistant over HTTP: a JSON API, a websocket
// session for live questions, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketsense/internal/assistant"
	"marketsense/internal/config"
	"marketsense/internal/metrics"
)

// Options holds the optional collaborators of a Server.
type Options struct {
	Metrics *metrics.Collector
	// Gatherer backs /metrics. The route is not registered when nil.
	Gatherer prometheus.Gatherer
	// MaxAudioBytes bounds decoded voice notes and so the request body.
	MaxAudioBytes int64
	// AllowedOrigins lists browser origins, besides the server's own host,
	// that may open websocket sessions.
	AllowedOrigins []string
}

// Server serves the assistant API.
type Server struct {
	logger    *slog.Logger
	assistant *assistant.Assistant
	opts      Options
	validator *config.Validator
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
}

// New creates a new Server.
func New(logger *slog.Logger, a *assistant.Assistant, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = 10 << 20
	}

	s := &Server{
		logger:    logger,
		assistant: a,
		opts:      opts,
		validator: config.NewValidator(),
		mux:       http.NewServeMux(),
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("GET /healthz", s.handleHealth)
	s.handle("GET /v1/catalog", s.handleCatalog)
	s.handle("GET /v1/price", s.handlePrice)
	s.handle("GET /v1/scan/{commodity}", s.handleScan)
	s.handle("POST /v1/ask", s.handleAsk)
	s.handle("GET /v1/history", s.handleHistory)
	s.handle("GET /v1/answers/{id}/audio", s.handleAudio)
	s.handle("GET /v1/ws", s.handleWebsocket)

	if s.opts.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
}

// checkOrigin accepts clients without an Origin header, pages served from the
// server's own host and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	s.logger.Warn("Rejected websocket origin", "origin", origin, "host", r.Host)
	return false
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

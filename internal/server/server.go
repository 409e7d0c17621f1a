// Package server exposes the linter over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlint/internal/state"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// Defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 4 << 20
	DefaultFilename     = "input.sql"
)

// Config holds configuration for the lint server.
type Config struct {
	Addr     string
	Linter   *lint.Linter
	Registry *lint.Registry
	Lint     *lint.Config
	// Store, when set, records batch runs and serves /v1/runs.
	Store        state.Store
	Timeout      time.Duration
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Server is the HTTP lint server.
type Server struct {
	addr     string
	linter   *lint.Linter
	registry *lint.Registry
	cfg      *lint.Config
	store    state.Store
	timeout  time.Duration
	maxBody  int64
	logger   *slog.Logger
}

// New creates a new server instance.
func New(cfg Config) *Server {
	s := &Server{
		addr:     cfg.Addr,
		linter:   cfg.Linter,
		registry: cfg.Registry,
		cfg:      cfg.Lint,
		store:    cfg.Store,
		timeout:  cfg.Timeout,
		maxBody:  cfg.MaxBodyBytes,
		logger:   cfg.Logger,
	}
	if s.linter == nil {
		s.linter = lint.NewLinter()
	}
	if s.registry == nil {
		s.registry = lint.DefaultRegistry()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Timeout(s.timeout),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/lint", s.handleLint)
		r.Post("/lint/batch", s.handleLintBatch)
		r.Get("/rules", s.handleRules)
		r.Get("/rules/{name}", s.handleRule)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
	})
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting lint server", "addr", ln.Addr().String())

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down lint server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				slog.String("id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

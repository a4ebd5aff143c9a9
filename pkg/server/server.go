package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/consent"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/server/middleware"
	"mercator-hq/covenant/pkg/service"
	"mercator-hq/covenant/pkg/telemetry"
	"mercator-hq/covenant/pkg/telemetry/health"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

// EvidenceIDHeader carries the id of the evidence record written for a
// single evaluation.
const EvidenceIDHeader = "X-Evidence-ID"

// Evaluator runs observed evaluations. *service.Service implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, source string, req *consent.Request) *service.Evaluation
	EvaluateBatch(ctx context.Context, source string, reqs []*consent.Request) ([]*service.Evaluation, error)
}

// EvidenceReader answers evidence queries. Every evidence.Storage
// implements it.
type EvidenceReader interface {
	Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error)
}

// Server is the covenant HTTP server.
type Server struct {
	cfg       config.ServerConfig
	telemetry config.TelemetryConfig
	svc       Evaluator
	evidence  EvidenceReader
	tel       *telemetry.Telemetry
	logger    *slog.Logger
	now       func() time.Time

	httpServer   *http.Server
	ready        chan struct{}
	addr         net.Addr
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Option configures a Server.
type Option func(*Server)

// WithEvidence enables GET /v1/evidence. When the reader also implements
// health.Pinger it is registered as the "evidence_storage" readiness check.
func WithEvidence(r EvidenceReader) Option {
	return func(s *Server) { s.evidence = r }
}

// WithNow sets the clock used to resolve relative query times.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a server for cfg. tel supplies the logger, metrics, tracer
// and health checker.
func New(cfg *config.Config, svc Evaluator, tel *telemetry.Telemetry, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg.Server,
		telemetry: cfg.Telemetry,
		svc:       svc,
		tel:       tel,
		logger:    tel.Logger.With("component", "server"),
		now:       time.Now,
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if p, ok := s.evidence.(health.Pinger); ok {
		tel.Health.RegisterCheck("evidence_storage", health.PingCheck(p))
	}
	return s
}

// Start listens on the configured address and serves until ctx is
// cancelled, SIGINT or SIGTERM arrives, or serving fails. It then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	if s.cfg.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			s.setRunning(false)
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		s.setRunning(false)
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddress, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting covenant server",
			"address", ln.Addr().String(),
			"tls_enabled", s.cfg.TLS.Enabled,
		)

		var err error
		if s.cfg.TLS.Enabled {
			err = s.httpServer.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()
	close(s.ready)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.setRunning(false)
		return err
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address, nil before Start binds.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Shutdown stops accepting connections and waits for in-flight requests
// up to the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if !s.IsRunning() {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.setRunning(false)
		s.logger.Info("covenant server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.isRunning = v
	s.mu.Unlock()
}

// Handler returns the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.Recovery(s.logger),
		tracing.HTTPMiddleware(s.tel.Tracer),
		middleware.Logging(s.logger),
	)
	if s.telemetry.Metrics.Enabled {
		r.Use(middleware.Metrics(s.tel.Metrics))
	}
	if s.cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(s.cfg.RateLimit.RequestsPerSecond, s.cfg.RateLimit.Burst))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, http.StatusNotFound, middleware.CodeNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, http.StatusMethodNotAllowed, middleware.CodeMethodNotAllowed,
			r.Method+" not allowed on "+r.URL.Path)
	})

	hc := s.telemetry.Health
	r.Get(hc.LivenessPath, s.tel.Health.LivenessHandler())
	r.Get(hc.ReadinessPath, s.tel.Health.ReadinessHandler())
	r.Get(hc.VersionPath, health.VersionHandler(s.tel.Version))
	if s.telemetry.Metrics.Enabled {
		r.Method(http.MethodGet, s.telemetry.Metrics.Path, s.tel.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(
			middleware.MaxBody(s.cfg.MaxBodyBytes),
			middleware.Timeout(s.cfg.RequestTimeout),
		)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/evaluate/batch", s.handleEvaluateBatch)
		r.Post("/verify", s.handleVerify)
		r.Get("/evidence", s.handleEvidence)
	})

	return r
}

// configureTLS checks the key pair and returns a TLS 1.3 config.
func (s *Server) configureTLS() (*tls.Config, error) {
	if s.cfg.TLS.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if s.cfg.TLS.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}
	if _, err := tls.LoadX509KeyPair(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile); err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return &tls.Config{MinVersion: tls.VersionTLS13}, nil
}

package rpc

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"securewrap/core"
	"securewrap/journal"
	"securewrap/observability/metrics"
)

// JournalReader lists journaled operations.
type JournalReader interface {
	List(ctx context.Context, filter journal.Filter) ([]journal.Entry, error)
}

// Config holds the HTTP surface settings.
type Config struct {
	Auth           AuthConfig
	RateLimit      RateLimit
	MaxBodyBytes   int64
	MetricsEnabled bool
}

// Server exposes a node over HTTP.
type Server struct {
	node    *core.Node
	journal JournalReader
	auth    *Authenticator
	limiter *RateLimiter
	metrics *metrics.HTTPMetrics
	logger  *slog.Logger
	cfg     Config
}

func NewServer(node *core.Node, store JournalReader, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	m := metrics.HTTP()
	auth := NewAuthenticator(cfg.Auth)
	auth.logger = logger
	return &Server{
		node:    node,
		journal: store,
		auth:    auth,
		limiter: NewRateLimiter(cfg.RateLimit, m),
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// Handler builds the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)
	r.Use(s.limitBody)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.With(s.limiter.Middleware).Post("/auth/login", s.handleLogin)

		v1.Group(func(pub chi.Router) {
			pub.Use(s.limiter.Middleware)
			pub.Get("/global", s.handleGlobal)
			pub.Get("/pairs", s.handlePairs)
			pub.Get("/pairs/{mint}", s.handlePair)
			pub.Get("/pairs/{mint}/invariants", s.handleInvariants)
			pub.Get("/pairs/{mint}/users/{owner}", s.handleUserState)
			pub.Get("/pairs/{mint}/unwraps/{owner}", s.handlePendingUnwrap)
			pub.Get("/pairs/{mint}/orders/{owner}/{side}", s.handleOrder)
			pub.Get("/accounts/{mint}/{owner}", s.handleAccount)
			pub.Get("/journal", s.handleJournal)
			pub.Get("/events/ws", s.handleEventsWS)
		})

		v1.Group(func(priv chi.Router) {
			priv.Use(s.auth.Middleware)
			priv.Use(s.limiter.Middleware)
			priv.Post("/ops/{operation}", s.handleOperation)
		})
	})

	return otelhttp.NewHandler(r, "securewrap.rpc")
}

// Serve runs the HTTP server on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Serve(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		s.metrics.Observe(route, recorder.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

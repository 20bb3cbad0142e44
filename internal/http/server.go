// Package http serves the keypad entry API: sessions, key presses, commits
// and the read side of a trip's ledger.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"viaggi/internal/log"
	"viaggi/internal/metrics"
	"viaggi/internal/middleware/ratelimit"
	"viaggi/internal/middleware/security"
	"viaggi/internal/middleware/trace"
	"viaggi/internal/services"
	"viaggi/internal/session"
)

const maxBodyBytes = 64 << 10

// Deps are the collaborators the handlers call into.
type Deps struct {
	Sessions *session.Store
	Expenses *services.ExpenseService
	Trips    *services.TripService
	Metrics  *metrics.Metrics
	// Ready backs /readyz; nil means always ready.
	Ready  func(context.Context) error
	Logger *log.Logger
	// RateLimit bounds key and commit requests per client; zero uses the
	// limiter defaults.
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	sessions *session.Store
	expenses *services.ExpenseService
	trips    *services.TripService
	metrics  *metrics.Metrics
	ready    func(context.Context) error
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Call Shutdown to stop it and its background goroutines.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		sessions: deps.Sessions,
		expenses: deps.Expenses,
		trips:    deps.Trips,
		metrics:  deps.Metrics,
		ready:    deps.Ready,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(deps.RateLimit),
		detector: security.NewDetector(logger),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(trace.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	if s.metrics != nil {
		r.Use(s.observe)
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.With(s.limit("sessions")).Post("/", s.handleOpenSession)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleCloseSession)
			r.With(s.limit("keys")).Post("/{id}/keys", s.handlePressKeys)
			r.With(s.limit("commit")).Post("/{id}/commit", s.handleCommit)
		})
		r.Get("/trips/{trip}/expenses", s.handleListExpenses)
		r.Get("/trips/{trip}/summary", s.handleSummary)
		r.Get("/categories", s.handleCategories)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// limit applies the shared per-client limiter and counts refusals by group.
func (s *Server) limit(group string) func(http.Handler) http.Handler {
	return s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) bool {
		if s.metrics != nil {
			s.metrics.RateLimited(group)
		}
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		writeError(w, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later")
		return true
	})
}

// observe records request latency by route pattern once chi has routed it.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, route, strconv.Itoa(status/100)+"xx", time.Since(start).Seconds())
	})
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "not_ready", "backend unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

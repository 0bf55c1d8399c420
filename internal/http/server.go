// Package http serves the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"balansim/internal/advice"
	"balansim/internal/core"
	"balansim/internal/log"
	"balansim/internal/metrics"
	"balansim/internal/middleware/ratelimit"
	"balansim/internal/middleware/security"
	"balansim/internal/services"
)

// Ledger is the mutation and read surface the API needs.
type Ledger interface {
	Snapshot() core.Ledger
	AddTransaction(ctx context.Context, in services.NewTransaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) (bool, error)
	AddCategory(ctx context.Context, in services.NewCategory) (core.Category, error)
	RemoveCategory(ctx context.Context, id string) (bool, error)
	SetStartingBalance(ctx context.Context, m core.Money) error
}

// AdviceSource exposes the latest advice.
type AdviceSource interface {
	Current() advice.Result
}

type Options struct {
	RateLimitPerMinute int
	MetricsEnabled     bool
	Location           *time.Location
	Logger             *log.Logger
	// Ready reports whether dependencies are usable. Nil means always ready.
	Ready func(ctx context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server
	ledger  Ledger
	advice  AdviceSource
	limiter *ratelimit.Limiter
	ips     *security.IPResolver
	opts    Options
	logger  *log.Logger
}

func NewServer(addr string, ledger Ledger, adv AdviceSource, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:  ledger,
		advice:  adv,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ips:     security.NewIPResolver(),
		opts:    opts,
		logger:  opts.Logger.WithComponent(log.ComponentHTTP),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, http.StatusNotFound, "not found", log.ErrorTypeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed", log.ErrorTypeValidation)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.opts.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ledger", s.handleLedger)
		r.Get("/summary", s.handleSummary)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/categories", s.handleListCategories)
		r.Get("/reports", s.handleReports)
		r.Get("/advice", s.handleAdvice)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.ips.ClientIP, s.onRateLimit))
			r.Post("/transactions", s.handleAddTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
			r.Post("/categories", s.handleAddCategory)
			r.Delete("/categories/{id}", s.handleRemoveCategory)
			r.Put("/starting-balance", s.handleSetStartingBalance)
		})
	})
	return r
}

// instrument records request counts and latency by route pattern, so path
// parameters do not explode label cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
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
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimited.Inc()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.NewFields().
		WithClientIP(s.ips.ClientIP(r)).
		WithRequestID(middleware.GetReqID(r.Context())).
		ToSlice()...)
	writeErrorStatus(w, http.StatusTooManyRequests, "rate limit exceeded, try again later", log.ErrorTypeRateLimit)
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
			writeErrorStatus(w, http.StatusServiceUnavailable, "not ready", log.ErrorTypeDatabase)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

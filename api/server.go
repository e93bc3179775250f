// Package api exposes the economy engine over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/economy"
)

// Server is the economy HTTP API.
type Server struct {
	eng      *economy.Economy
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for internal errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics exposes g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithRequestTimeout bounds each request. Zero disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer creates an API server over eng.
func NewServer(eng *economy.Economy, opts ...Option) *Server {
	s := &Server{
		eng:     eng,
		logger:  slog.Default(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", s.handleOpenAccount)
		r.Get("/", s.handleListAccounts)
		r.Route("/{accountID}", func(r chi.Router) {
			r.Get("/", s.handleGetAccount)
			r.Get("/balance", s.handleBalance)
			r.Get("/transactions", s.handleListTransactions)
			r.Post("/credit", s.handleCredit)
			r.Post("/debit", s.handleDebit)
			r.Post("/disable", s.handleDisable)
			r.Post("/enable", s.handleEnable)
			r.Post("/earnings", s.handleEarnings)
			r.Post("/purchases", s.handlePurchase)
			r.Get("/purchases/quote", s.handleQuote)
		})
	})
	r.Post("/transfers", s.handleTransfer)

	r.Get("/funds", s.handleFunds)
	r.Post("/funds/{fundType}/grants", s.handleGrant)

	r.Get("/tax/settings", s.handleTaxSettings)
	r.Get("/tax/adjustments", s.handleAdjustments)

	r.Get("/stats", s.handleStats)
	r.Get("/invariants", s.handleInvariants)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/weekly-bonus", s.handleWeeklyBonus)
		r.Post("/annual-adjustment", s.handleAnnualAdjustment)
		r.Post("/fiscal-year-seed", s.handleFiscalYearSeed)
	})

	return r
}

// Package http serves the famspese JSON API.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"famspese/internal/auth"
	"famspese/internal/cache"
	applog "famspese/internal/log"
	"famspese/internal/metrics"
	"famspese/internal/middleware/bearer"
	"famspese/internal/middleware/ratelimit"
	"famspese/internal/middleware/security"
	"famspese/internal/middleware/trace"
	"famspese/internal/services"
	"famspese/internal/storage"
)

const (
	defaultSubcategoryCacheSize = 100
	defaultSubcategoryCacheTTL  = 5 * time.Minute
	cacheSweepInterval          = 10 * time.Minute
	readyTimeout                = 5 * time.Second

	subcategoryCacheName = "subcategories"
)

// Options configures the HTTP surface. Zero values fall back to defaults.
type Options struct {
	Addr                 string
	CORSAllowedOrigins   []string
	RateLimitPerMinute   int
	SubcategoryCacheSize int
	SubcategoryCacheTTL  time.Duration
	TrustedProxies       []string
}

// Deps are the collaborators the handlers call into. Metrics and Logger may
// be nil.
type Deps struct {
	Store    storage.Store
	Plans    *services.PlanService
	Expenses *services.ExpenseService
	Accounts *auth.PasswordAuthenticator
	Tokens   *auth.JWTManager
	Metrics  *metrics.Metrics
	Logger   *applog.Logger
}

type Server struct {
	http.Server

	store    storage.Store
	plans    *services.PlanService
	expenses *services.ExpenseService
	accounts *auth.PasswordAuthenticator
	tokens   *auth.JWTManager
	metrics  *metrics.Metrics
	logger   *applog.Logger

	clientIP    *security.ClientIPResolver
	rateLimiter *ratelimit.Limiter

	// Subcategory lists per category id, swept by caches.
	subcategoryCache *cache.LRUCache[[]subcategoryResponse]
	caches           *cache.Manager

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Call Shutdown to stop it and its background sweeps.
func NewServer(opts Options, deps Deps) *Server {
	if opts.SubcategoryCacheSize <= 0 {
		opts.SubcategoryCacheSize = defaultSubcategoryCacheSize
	}
	if opts.SubcategoryCacheTTL <= 0 {
		opts.SubcategoryCacheTTL = defaultSubcategoryCacheTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}

	s := &Server{
		store:    deps.Store,
		plans:    deps.Plans,
		expenses: deps.Expenses,
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		metrics:  deps.Metrics,
		logger:   logger,
		clientIP: security.NewClientIPResolver(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		subcategoryCache: cache.NewLRUCache[[]subcategoryResponse](opts.SubcategoryCacheSize, opts.SubcategoryCacheTTL),
		caches:           cache.NewManager(),
		startedAt:        time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.clientIP.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s.caches.Register(subcategoryCacheName, s.subcategoryCache)
	s.caches.StartCleanup(context.Background(), cacheSweepInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.clientIP.ClientIP, s.handleRateLimited)(handler)
	handler = security.CORS(opts.CORSAllowedOrigins)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(s.clientIP.ClientIP, logger, deps.Metrics).Middleware(handler)

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	protect := bearer.Require(s.tokens, s.writeAuthError)
	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/subcategories", s.handleListSubcategories)

	api("GET /api/me", s.handleMe)

	api("GET /api/plans", s.handleListPlans)
	api("POST /api/plans", s.handleCreatePlan)
	api("GET /api/plans/{id}", s.handleGetPlan)
	api("PUT /api/plans/{id}", s.handleUpdatePlan)
	api("DELETE /api/plans/{id}", s.handleDeletePlan)
	api("POST /api/plans/{id}/members", s.handleAddPlanMember)
	api("GET /api/plans/{id}/summary", s.handlePlanSummary)
	api("GET /api/plans/{id}/planned-expenses", s.handleListPlannedExpenses)

	api("POST /api/planned-expenses", s.handleCreatePlannedExpense)
	api("GET /api/planned-expenses/{id}", s.handleGetPlannedExpense)
	api("PUT /api/planned-expenses/{id}", s.handleUpdatePlannedExpense)
	api("DELETE /api/planned-expenses/{id}", s.handleDeletePlannedExpense)
	api("GET /api/planned-expenses/{id}/payments", s.handleEntryPayments)

	api("GET /api/payments", s.handleListPayments)
	api("POST /api/payments", s.handleCreatePayment)
	api("GET /api/payments/batch", s.handleBatchPayments)
	api("GET /api/payments/{id}", s.handleGetPayment)
	api("PUT /api/payments/{id}", s.handleUpdatePayment)
	api("DELETE /api/payments/{id}", s.handleDeletePayment)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe runs the server until Shutdown, reporting a clean stop as
// nil.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

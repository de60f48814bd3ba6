// Package http serves the finanzas JSON API.
package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// Deps are the collaborators of a Server. Ready and CacheStats may be nil.
type Deps struct {
	Definitions *services.DefinitionService
	Tasks       *services.TaskService
	Generator   *services.Generator

	JWTSecret          string
	CronToken          string
	RateLimitPerMinute int

	Logger     *applog.Logger
	Ready      func(ctx context.Context) error
	CacheStats func() cache.Stats
}

type Server struct {
	http.Server

	defs      *services.DefinitionService
	tasks     *services.TaskService
	generator *services.Generator

	jwtSecret string
	cronToken string

	ready      func(ctx context.Context) error
	cacheStats func() cache.Stats

	rateLimiter     *ratelimit.Limiter
	clientIP        *security.ClientIPResolver
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	now func() time.Time
}

type appMetrics struct {
	uptime         time.Time
	generatorRuns  int64
	itemsGenerated int64
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		defs:       deps.Definitions,
		tasks:      deps.Tasks,
		generator:  deps.Generator,
		jwtSecret:  deps.JWTSecret,
		cronToken:  deps.CronToken,
		ready:      deps.Ready,
		cacheStats: deps.CacheStats,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			SkipSafeMethods:   true,
		}),
		clientIP:   security.NewClientIPResolver(),
		appMetrics: &appMetrics{uptime: time.Now()},
		now:        time.Now,
	}
	s.traceMiddleware = trace.NewMiddleware(s.clientIP.ExtractClientIP, logger.WithComponent(applog.ComponentHTTP))

	api := http.NewServeMux()
	s.registerDefinitionRoutes(api, core.Income)
	s.registerDefinitionRoutes(api, core.Outcome)
	s.registerGroupRoutes(api, core.Project)
	s.registerGroupRoutes(api, core.Activity)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/cron-job/update-dynamics", s.cronGuard(s.handleGenerate))
	mux.HandleFunc("GET /api/cron-job/update-dynamics", s.cronGuard(s.handleGenerate))
	mux.Handle("/api/", s.requireAuth(api))

	limited := s.rateLimiter.Middleware(s.clientIP.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusTooManyRequests, "Too many requests.")
	})(mux)
	secured := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	handler := applog.Middleware(logger)(s.traceMiddleware.Middleware(secured))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) recordGeneration(res services.GenerationResult) {
	atomic.AddInt64(&s.appMetrics.generatorRuns, 1)
	atomic.AddInt64(&s.appMetrics.itemsGenerated, int64(res.Created))
}

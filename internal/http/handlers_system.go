package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	applog "finanzas/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady reports 503 when the storage check fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.ready == nil {
		checks["storage"] = "ok"
	} else if err := s.ready(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	if s.cacheStats != nil {
		checks["cache"] = map[string]any{"entries": s.cacheStats().Size}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()

	counter := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %v\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateMetrics.TotalHits)
	gauge("rate_limit_clients", "Clients tracked by the rate limiter", rateMetrics.ClientCount)
	counter("generator_runs_total", "Generator passes triggered over HTTP", atomic.LoadInt64(&s.appMetrics.generatorRuns))
	counter("generator_items_created_total", "Items created by HTTP-triggered passes", atomic.LoadInt64(&s.appMetrics.itemsGenerated))
	if s.cacheStats != nil {
		st := s.cacheStats()
		gauge("cache_entries", "Cached definition lists", st.Size)
		counter("cache_hits_total", "Definition list cache hits", st.Hits)
		counter("cache_misses_total", "Definition list cache misses", st.Misses)
	}
	gauge("uptime_seconds", "Seconds since the server started", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

// handleGenerate runs one Generator pass at the current time. The counts go
// to the log and the metrics, the response has no body.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	res, err := s.generator.Run(r.Context(), s.now())
	if err != nil {
		// Per-direction listing failures; whatever ran is still reported.
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Generator pass incomplete",
			applog.FieldComponent, applog.ComponentGenerator,
			applog.FieldError, err)
	}
	s.recordGeneration(res)
	w.WriteHeader(http.StatusNoContent)
}

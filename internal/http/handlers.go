package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	d, err := s.services.Dashboard.Build(r.Context(), params.Year, params.Month, userScope(r))
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 until the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"storage": "ok"}
	if err := s.services.Ready(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limits := s.limiter.Stats()
	security := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Requests answered with a 5xx status", traceMetrics.ServerErrors)
	metric("http_request_duration_avg_ms", "gauge", "Mean request handling time", traceMetrics.AverageLatency().Milliseconds())
	metric("rate_limit_hits_total", "counter", "Writes rejected by the rate limiter", limits.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limits.Clients)
	metric("suspicious_requests_total", "counter", "Requests blocked as probes", security.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/taskboard/internal/metrics"
)

const unmatchedRoute = "unmatched"

// RouteMetrics records request counts and latency per route. Only routes
// loaded from the router become labels; anything else is "unmatched".
type RouteMetrics struct {
	mu     sync.RWMutex
	routes map[string]struct{}
}

// NewRouteMetrics creates an empty route allowlist.
func NewRouteMetrics() *RouteMetrics {
	return &RouteMetrics{routes: make(map[string]struct{})}
}

// Load walks routes and allows every registered pattern as a label.
func (m *RouteMetrics) Load(routes chi.Routes) error {
	known := make(map[string]struct{})
	err := chi.Walk(routes, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		known[routeLabel(route)] = struct{}{}
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.routes = known
	m.mu.Unlock()
	return nil
}

// Middleware records HTTP request metrics.
func (m *RouteMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := &metricsWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := m.label(r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// label returns the matched chi pattern when it is on the allowlist.
func (m *RouteMetrics) label(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return unmatchedRoute
	}
	route := routeLabel(rctx.RoutePattern())

	m.mu.RLock()
	_, ok := m.routes[route]
	m.mu.RUnlock()
	if !ok {
		return unmatchedRoute
	}
	return route
}

// routeLabel folds the trailing slash and wildcard chi leaves on mounted
// sub-routers, so /projects/{id}/ and /projects/{id} share a label.
func routeLabel(pattern string) string {
	pattern = strings.TrimSuffix(pattern, "/*")
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	return pattern
}

type metricsWriter struct {
	http.ResponseWriter
	status int
}

func (w *metricsWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Package health serves the liveness and readiness checks.
package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// Checker defines the interface for health checkers.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler manages health check endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewHandler creates a new health handler.
func NewHandler() *Handler {
	return &Handler{
		checkers: make([]Checker, 0),
	}
}

// RegisterChecker adds a dependency checker.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeStatus(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Health returns basic health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Live returns 200 while the process is running.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, HealthResponse{Status: "live"})
}

// Ready checks every registered dependency and returns 200 only if all are
// healthy. Failures are logged; the response only names the failing check.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	results := make(map[string]string)
	allHealthy := true

	for _, checker := range checkers {
		if err := checker.Check(ctx); err != nil {
			log.Printf("readiness check %s failed: %v", checker.Name(), err)
			results[checker.Name()] = "unavailable"
			allHealthy = false
		} else {
			results[checker.Name()] = "ok"
		}
	}

	if !allHealthy {
		writeStatus(w, http.StatusServiceUnavailable, HealthResponse{Status: "not_ready", Checks: results})
		return
	}
	writeStatus(w, http.StatusOK, HealthResponse{Status: "ready", Checks: results})
}

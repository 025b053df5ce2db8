package handlers

import (
	"context"
	"net/http"
	"time"
)

// ReadinessProbe reports whether one dependency is ready to serve traffic.
type ReadinessProbe func(ctx context.Context) error

// HealthHandlers serves the /healthz and /readyz endpoints.
type HealthHandlers struct {
	startTime time.Time
	probes    []ReadinessProbe
}

// NewHealthHandlers constructs health handlers; probes run on every /readyz request.
func NewHealthHandlers(probes ...ReadinessProbe) *HealthHandlers {
	return &HealthHandlers{
		startTime: time.Now(),
		probes:    probes,
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether dependencies are reachable.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	for _, probe := range h.probes {
		if probe == nil {
			continue
		}
		if err := probe(r.Context()); err != nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "ok"})
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

// probeTimeout bounds each per-component reachability probe.
const probeTimeout = 3 * time.Second

// HealthHandler serves the health-check endpoint: process liveness plus a
// reachability summary for every registered collaborator.
type HealthHandler struct {
	checkers []domain.HealthChecker
}

// NewHealthHandler creates a HealthHandler probing the given components.
func NewHealthHandler(checkers []domain.HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers}
}

// HealthCheck responds with the liveness status and per-component results.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(h.checkers))
	for _, hc := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := hc.HealthCheck(ctx)
		cancel()

		if err != nil {
			components[hc.Name()] = err.Error()
		} else {
			components[hc.Name()] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

package handler

import (
	"net/http"

	"github.com/crosspair/spreadbot/internal/domain"
)

// StatusProvider supplies the orchestrator snapshot for the API.
type StatusProvider interface {
	Status() domain.StatusSnapshot
}

// StatusHandler serves the orchestrator status snapshot.
type StatusHandler struct {
	status StatusProvider
}

// NewStatusHandler creates a StatusHandler backed by the given provider.
func NewStatusHandler(status StatusProvider) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with the current orchestrator snapshot.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status())
}

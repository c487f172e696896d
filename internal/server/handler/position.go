package handler

import (
	"net/http"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

// PositionProvider exposes the tracker's open position.
type PositionProvider interface {
	OpenPosition() (domain.Position, bool)
}

// PositionHandler serves the open-position detail endpoint.
type PositionHandler struct {
	positions PositionProvider
}

// NewPositionHandler creates a PositionHandler backed by the given provider.
func NewPositionHandler(positions PositionProvider) *PositionHandler {
	return &PositionHandler{positions: positions}
}

// positionResponse is the open position plus its derived duration.
type positionResponse struct {
	domain.Position
	Duration string `json:"duration"`
}

// GetPosition returns the open position, or 404 when the tracker is flat.
// GET /api/position
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, ok := h.positions.OpenPosition()
	if !ok {
		writeError(w, http.StatusNotFound, "no open position")
		return
	}

	writeJSON(w, http.StatusOK, positionResponse{
		Position: pos,
		Duration: pos.DurationString(time.Now().UTC()),
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lewisian8787/wrestleguess/middleware"
	"github.com/lewisian8787/wrestleguess/models"
	"github.com/lewisian8787/wrestleguess/services"
)

// PickHandler handles pick submission and reads for the current user
type PickHandler struct {
	picks *services.PickService
}

// NewPickHandler creates a new pick handler
func NewPickHandler(picks *services.PickService) *PickHandler {
	return &PickHandler{picks: picks}
}

// SubmitPicksRequest is the body of POST /api/picks
type SubmitPicksRequest struct {
	EventID string                   `json:"eventId"`
	Choices map[string]models.Choice `json:"choices"`
}

// SubmitPicks handles POST /api/picks
func (h *PickHandler) SubmitPicks(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req SubmitPicksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.EventID == "" {
		writeMessage(w, http.StatusBadRequest, "eventId is required")
		return
	}

	pick, err := h.picks.SubmitPicks(r.Context(), user.ID, req.EventID, req.Choices)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pick)
}

// GetPicksForEvent handles GET /api/picks/event/{eventId}
func (h *PickHandler) GetPicksForEvent(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	pick, err := h.picks.GetPick(r.Context(), user.ID, mux.Vars(r)["eventId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if pick == nil {
		writeMessage(w, http.StatusNotFound, "No picks found for this event")
		return
	}
	writeJSON(w, http.StatusOK, pick)
}

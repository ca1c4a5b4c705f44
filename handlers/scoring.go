package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/middleware"
	"github.com/lewisian8787/wrestleguess/services"
)

// ScoringHandler exposes the admin scoring action
type ScoringHandler struct {
	scoring *services.ScoringService
	logger  *logging.Logger
}

// NewScoringHandler creates a new scoring handler
func NewScoringHandler(scoring *services.ScoringService) *ScoringHandler {
	return &ScoringHandler{
		scoring: scoring,
		logger:  logging.WithPrefix("ScoringHandler"),
	}
}

type scoreEventResponse struct {
	Message            string `json:"message"`
	UsersScored        int    `json:"usersScored"`
	MembershipsUpdated int    `json:"membershipsUpdated"`
	MembershipsSkipped int    `json:"membershipsSkipped"`
	LegacySkipped      int    `json:"legacySkipped"`
}

// ScoreEvent handles POST /api/events/{id}/score
func (h *ScoringHandler) ScoreEvent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]

	admin := middleware.GetUserFromContext(r)
	if admin != nil {
		h.logger.Infof("Scoring of event %s requested by %s", eventID, admin.Email)
	}

	result, err := h.scoring.ScoreEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scoreEventResponse{
		Message:            "Event scored successfully",
		UsersScored:        result.UsersScored,
		MembershipsUpdated: result.MembershipsUpdated,
		MembershipsSkipped: result.MembershipsSkipped,
		LegacySkipped:      result.LegacySkipped,
	})
}

// PreviewScores handles GET /api/events/{id}/preview. Nothing is written.
func (h *ScoringHandler) PreviewScores(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.scoring.PreviewScores(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

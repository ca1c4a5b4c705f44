package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lewisian8787/wrestleguess/services"
)

// LeaderboardHandler serves league standings and the global leaderboard
type LeaderboardHandler struct {
	leaderboards *services.LeaderboardService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboards *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboards: leaderboards}
}

// LeagueStandings handles GET /api/leagues/{id}/standings
func (h *LeaderboardHandler) LeagueStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.leaderboards.LeagueStandings(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

// GlobalLeaderboard handles GET /api/leaderboard?limit=N. A missing or
// unparsable limit falls back to the default, large ones are clamped.
func (h *LeaderboardHandler) GlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.leaderboards.GlobalLeaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

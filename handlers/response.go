package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/services"
)

// messageResponse is the body of every error and of plain acknowledgements
type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Errorf("Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError maps service errors onto status codes and client-facing messages.
// Anything unrecognised is logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logging.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeMessage(w, status, message)
}

func errorResponse(err error) (int, string) {
	var invalid *services.InvalidPickError
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		return http.StatusNotFound, "Event not found"
	case errors.Is(err, services.ErrEventAlreadyScored):
		return http.StatusBadRequest, "Event has already been scored"
	case errors.Is(err, services.ErrIncompleteOutcomes):
		return http.StatusBadRequest, "All matches must have winners before scoring"
	case errors.Is(err, services.ErrPartialWrite):
		return http.StatusInternalServerError, "Standings update partially applied; retry scoring"
	case errors.Is(err, services.ErrEventLocked):
		return http.StatusBadRequest, "Event is locked. Cannot submit or update picks."
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Reason
	case errors.Is(err, services.ErrLeagueNotFound):
		return http.StatusNotFound, "League not found"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/middleware"
	"github.com/lewisian8787/wrestleguess/models"
	"github.com/lewisian8787/wrestleguess/services"
)

// AuthHandler handles login, logout and the current-user lookup
type AuthHandler struct {
	authService *services.AuthService
	behindProxy bool
	logger      *logging.Logger
}

// NewAuthHandler creates a new auth handler. behindProxy disables the Secure
// cookie flag when TLS terminates upstream.
func NewAuthHandler(authService *services.AuthService, behindProxy bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		behindProxy: behindProxy,
		logger:      logging.WithPrefix("AuthHandler"),
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	resp, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warnf("Login failed for %s: %v", req.Email, err)
		writeError(w, r, err)
		return
	}

	h.setAuthCookie(w, resp.Token, time.Now().Add(services.DefaultTokenExpiry))
	h.logger.Infof("User %s (%s) logged in", resp.User.DisplayName, resp.User.Email)
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout by clearing the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setAuthCookie(w, "", time.Unix(0, 0))
	writeMessage(w, http.StatusOK, "Logged out")
}

// Me returns the current user's information
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	writeJSON(w, http.StatusOK, user.ToSafeUser())
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !h.behindProxy,
		SameSite: http.SameSiteStrictMode,
	})
}

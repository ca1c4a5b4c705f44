package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/models"
	"github.com/lewisian8787/wrestleguess/services"
)

// UserContextKey is the key used to store user in request context
type UserContextKey string

const UserKey UserContextKey = "user"

// AuthCookieName holds the JWT for browser clients
const AuthCookieName = "auth_token"

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	authService *services.AuthService
	logger      *logging.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logging.WithPrefix("Auth"),
	}
}

// RequireAuth rejects requests without a valid token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.getUserFromRequest(r)
		if err != nil || user == nil {
			m.logger.Debugf("Rejected %s %s: %v", r.Method, r.URL.Path, err)
			writeAuthError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin must run after RequireAuth
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r)
		if user == nil || !user.IsAdmin {
			writeAuthError(w, http.StatusForbidden, "Not authorized as admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuth adds the user to the context when a valid token is present
// and never rejects the request
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := m.getUserFromRequest(r)
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// getUserFromRequest reads the token from the Authorization header, then the cookie
func (m *AuthMiddleware) getUserFromRequest(r *http.Request) (*models.User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return m.authService.GetUserFromToken(r.Context(), strings.TrimSpace(parts[1]))
		}
	}

	cookie, err := r.Cookie(AuthCookieName)
	if err == nil && cookie.Value != "" {
		return m.authService.GetUserFromToken(r.Context(), cookie.Value)
	}

	return nil, http.ErrNoCookie
}

// GetUserFromContext retrieves the authenticated user from request context
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

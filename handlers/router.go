package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/lewisian8787/wrestleguess/metrics"
	"github.com/lewisian8787/wrestleguess/middleware"
	"github.com/lewisian8787/wrestleguess/services"
)

// RouterDeps collects everything the HTTP layer needs
type RouterDeps struct {
	Auth         *services.AuthService
	Scoring      *services.ScoringService
	Picks        *services.PickService
	Leaderboards *services.LeaderboardService
	Hub          *Hub
	DB           Pinger
	Metrics      *metrics.Manager
	CORSOrigins  []string
	BehindProxy  bool
}

// NewRouter wires every route and wraps the router in CORS handling
func NewRouter(deps RouterDeps) http.Handler {
	authMiddleware := middleware.NewAuthMiddleware(deps.Auth)
	authHandler := NewAuthHandler(deps.Auth, deps.BehindProxy)
	scoringHandler := NewScoringHandler(deps.Scoring)
	pickHandler := NewPickHandler(deps.Picks)
	leaderboardHandler := NewLeaderboardHandler(deps.Leaderboards)

	router := mux.NewRouter()
	router.Use(middleware.RequestMetrics(deps.Metrics))
	router.Use(middleware.SecurityHeaders(deps.BehindProxy))

	user := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(authMiddleware.RequireAdmin(h))
	}

	// Routes sit directly on api so a method mismatch surfaces as 405
	api := router.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(routeNotFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	api.HandleFunc("/health", Health(deps.DB, deps.Hub)).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	api.Handle("/auth/me", user(authHandler.Me)).Methods(http.MethodGet)
	api.Handle("/picks", user(pickHandler.SubmitPicks)).Methods(http.MethodPost)
	api.Handle("/picks/event/{eventId}", user(pickHandler.GetPicksForEvent)).Methods(http.MethodGet)
	api.Handle("/leagues/{id}/standings", user(leaderboardHandler.LeagueStandings)).Methods(http.MethodGet)
	api.Handle("/leaderboard", user(leaderboardHandler.GlobalLeaderboard)).Methods(http.MethodGet)

	api.Handle("/events/{id}/score", admin(scoringHandler.ScoreEvent)).Methods(http.MethodPost)
	api.Handle("/events/{id}/preview", admin(scoringHandler.PreviewScores)).Methods(http.MethodGet)

	if deps.Hub != nil {
		router.Handle("/ws", authMiddleware.OptionalAuth(http.HandlerFunc(deps.Hub.ServeWS))).Methods(http.MethodGet)
	}
	router.Handle("/metrics", Metrics()).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

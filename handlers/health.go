package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lewisian8787/wrestleguess/metrics"
)

// Pinger is implemented by every database backend
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	WebsocketClients int    `json:"websocketClients"`
	Time             int64  `json:"time"`
}

// Health handles GET /api/health. It reports 503 when the database is unreachable.
// hub may be nil.
func Health(db Pinger, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Database: "ok", Time: time.Now().Unix()}
		status := http.StatusOK
		if hub != nil {
			resp.WebsocketClients = hub.ClientCount()
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.Database = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, status, resp)
	}
}

// Metrics serves the Prometheus exposition of the service registry
func Metrics() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

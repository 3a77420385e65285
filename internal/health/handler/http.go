// Package handler serves readiness/liveness for load balancers and CI.
package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"leadpulse/backend/internal/webhook"
)

// pingTimeout bounds the database probe so a wedged pool cannot hang the check.
const pingTimeout = 2 * time.Second

// Pinger reports backing-store reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler answers GET /healthz with the database reachability status.
type Handler struct {
	db Pinger
}

// NewHandler returns the health handler.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		log.Printf("health: database ping: %v", err)
		webhook.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":     false,
			"status": "unhealthy",
		})
		return
	}

	webhook.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

package stream

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"leadpulse/backend/internal/webhook"
)

// Handler serves the SSE endpoint. GET streams events for ?tenant=; HEAD
// answers with the stream headers only, for client reachability probes.
type Handler struct {
	registry *Registry
}

// NewHandler returns the SSE handler backed by registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenant := strings.TrimSpace(r.URL.Query().Get("tenant"))
	if tenant == "" {
		webhook.WriteError(w, http.StatusBadRequest, "tenant query parameter is required")
		return
	}

	writeStreamHeaders(w)

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		webhook.WriteError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	ch := h.registry.Subscribe(tenant)
	defer ch.Close()

	// Comment frame confirms the connection before any event arrives.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch.Events():
			if !open {
				return
			}
			if err := writeFrame(w, ev); err != nil {
				log.Printf("stream: write to subscriber for tenant %s: %v", tenant, err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	// Disables proxy buffering that would defeat incremental delivery.
	h.Set("X-Accel-Buffering", "no")
}

func writeFrame(w http.ResponseWriter, ev Event) error {
	if ev.Name == keepAliveEvent {
		_, err := fmt.Fprint(w, ": keep-alive\n\n")
		return err
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
	return err
}

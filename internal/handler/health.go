package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/josh-kwaku/splitledger/internal/logging"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB and the bolt store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	store   Pinger
	backend string
	started time.Time
}

func NewHealthHandler(store Pinger, backend string) *HealthHandler {
	return &HealthHandler{store: store, backend: backend, started: time.Now()}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness pings the configured store, giving it readinessTimeout to answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.store.PingContext(ctx); err != nil {
		logging.FromContext(r.Context()).Warn("readiness check failed", "backend", h.backend, "error", err)
		status, code = "down", http.StatusServiceUnavailable
	}

	RespondJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]string{
			"store":   status,
			"backend": h.backend,
		},
	})
}

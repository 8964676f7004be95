package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"prepforge/interview/internal/utils"
)

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

// Pinger is the durable store's liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   Pinger
	redis   *redis.Client
	timeout time.Duration
}

// NewHealthHandler builds the probes. rdb may be nil when redis is not configured.
func NewHealthHandler(store Pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{store: store, redis: rdb, timeout: 2 * time.Second}
}

func (h *HealthHandler) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "live-interview",
	})
}

func (h *HealthHandler) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]ReadinessCheck)
	ready := true

	if h.store == nil {
		checks["database"] = ReadinessCheck{Status: "failed", Message: "database not initialized"}
		ready = false
	} else if err := h.store.Ping(ctx); err != nil {
		checks["database"] = ReadinessCheck{Status: "failed", Message: err.Error()}
		ready = false
	} else {
		checks["database"] = ReadinessCheck{Status: "ok"}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = ReadinessCheck{Status: "failed", Message: err.Error()}
			ready = false
		} else {
			checks["redis"] = ReadinessCheck{Status: "ok"}
		}
	}

	resp := ReadinessResponse{Service: "live-interview", Checks: checks}
	if ready {
		resp.Status = "ready"
		utils.JSON(w, http.StatusOK, resp)
		return
	}
	resp.Status = "not_ready"
	utils.JSON(w, http.StatusServiceUnavailable, resp)
}

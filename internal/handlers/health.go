package handlers

import (
	"net/http"
	"time"
)

type healthCheck struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

// Health reports liveness of the service and its backing stores.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]healthCheck)
	healthy := true

	start := time.Now()
	if err := h.db.Ping(r.Context()); err != nil {
		checks["database"] = healthCheck{Status: "unhealthy", LatencyMs: time.Since(start).Milliseconds()}
		healthy = false
	} else {
		checks["database"] = healthCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	}

	if h.redis != nil {
		start = time.Now()
		if err := h.redis.Ping(r.Context()); err != nil {
			checks["redis"] = healthCheck{Status: "unhealthy", LatencyMs: time.Since(start).Milliseconds()}
			healthy = false
		} else {
			checks["redis"] = healthCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	h.JSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mentorchat/internal/app"
	"mentorchat/internal/logging"
)

type HealthChecker interface {
	Check(ctx context.Context) app.HealthSnapshot
}

type HealthHandler struct {
	health HealthChecker
	logger *slog.Logger
}

func NewHealthHandler(health HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HealthHandler{health: health, logger: logger}
}

// Check serves GET and HEAD. HEAD gets the same status and headers without a
// body.
func (h *HealthHandler) Check(c *gin.Context) {
	start := time.Now()
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Content-Type", "application/json")

	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(c.Request.Context(), h.logger).Error("health check failed", "panic", fmt.Sprint(r))
			h.write(c, http.StatusServiceUnavailable, gin.H{
				"status":       "unhealthy",
				"timestamp":    time.Now().UTC(),
				"error":        "Health check failed",
				"responseTime": fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
			})
		}
	}()

	snapshot := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if !snapshot.Healthy() {
		status = http.StatusServiceUnavailable
	}
	h.write(c, status, snapshot)
}

func (h *HealthHandler) write(c *gin.Context, status int, body any) {
	if c.Request.Method == http.MethodHead {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

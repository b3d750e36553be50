package handler

import (
	"net/http"
	"time"

	"redwarm/internal/service"
	"redwarm/pkg/config"
	"redwarm/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins, production should use stricter checks
	},
}

// HealthHandler exposes system health snapshots to operators
type HealthHandler struct {
	healthService *service.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(healthService *service.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// Check returns a point-in-time health snapshot
// GET /v1/admin/health
func (h *HealthHandler) Check(c *gin.Context) {
	health := h.healthService.PerformHealthCheck(c.Request.Context())
	c.JSON(http.StatusOK, health)
}

// Stream pushes health snapshots over a WebSocket connection at a
// fixed interval until the client disconnects
// GET /v1/admin/health/ws
func (h *HealthHandler) Stream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "Failed to upgrade to websocket: %v", err)
		return
	}
	defer ws.Close()

	interval := time.Duration(config.GlobalConfig.Health.StreamInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Drain reads so close frames from the client are seen
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Push one snapshot immediately, then on every tick
	if err := ws.WriteJSON(h.healthService.PerformHealthCheck(c.Request.Context())); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WriteJSON(h.healthService.PerformHealthCheck(c.Request.Context())); err != nil {
				return
			}
		}
	}
}

package router

import (
	"redwarm/app/handler"
	"redwarm/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	warmupHandler *handler.WarmupHandler
	healthHandler *handler.HealthHandler
}

// NewRouter creates a new Router
func NewRouter(warmupHandler *handler.WarmupHandler, healthHandler *handler.HealthHandler) *Router {
	return &Router{
		warmupHandler: warmupHandler,
		healthHandler: healthHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	// V1 API - Account warmup management interface
	v1 := engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		accounts := v1.Group("/accounts/:account_id")
		{
			accounts.GET("/warmup", r.warmupHandler.Status)
			accounts.POST("/warmup/start", r.warmupHandler.Start)
			accounts.POST("/warmup/pause", r.warmupHandler.Pause)
			accounts.POST("/warmup/resume", r.warmupHandler.Resume)
			accounts.POST("/warmup/stop", r.warmupHandler.Stop)
		}

		// Operator APIs
		admin := v1.Group("/admin")
		{
			admin.GET("/health", r.healthHandler.Check)
			admin.GET("/health/ws", r.healthHandler.Stream)
		}
	}

	// Liveness probe
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

package middleware

import (
	"net/http"
	"strings"

	"redwarm/pkg/config"
	"redwarm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware bearer API-key check guarding the warmup control and
// admin endpoints. An empty configured key disables the check, which is
// only meant for local development.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expectedAPIKey := config.GlobalConfig.Server.APIKey
		if expectedAPIKey == "" {
			logger.DebugCtx(c.Request.Context(), "API key not configured, skipping auth")
			c.Next()
			return
		}

		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token != expectedAPIKey {
			logger.WarnCtx(c.Request.Context(), "unauthorized request, path: %s", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}

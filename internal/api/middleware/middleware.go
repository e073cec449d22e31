// Package middleware holds the Gin middleware the management API
// mounts: shared-secret authentication for mutating routes and slog
// request logging.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bigr-systems/guardian/internal/api/models"
)

// RequireAPIKey gates a route group behind an `X-API-Key` header. An
// empty expected key disables the check, which is the default for
// loopback-only deployments.
func RequireAPIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected != "" && c.GetHeader("X-API-Key") != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

// SlogRequestLogger logs one line per completed request.
func SlogRequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logger == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.Info("api request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

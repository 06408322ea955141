package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLog logs one line per request after it completes. skipPaths are route
// templates to not log (e.g. /healthz). The caller's directory id is included when authenticated.
func AccessLog(logger *zap.Logger, skipPaths map[string]bool) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if skipPaths[route] {
			return
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		}
		if rec := Identity(c); rec != nil {
			fields = append(fields, zap.String("user_id", rec.ID))
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("http: request failed", fields...)
			return
		}
		logger.Info("http: request", fields...)
	}
}

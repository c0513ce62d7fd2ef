package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/class-schedule-api/internal/models"
	"github.com/noah-isme/class-schedule-api/pkg/middleware/requestid"
)

// Audit logs successful write requests together with the acting user.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		userID := "anonymous"
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok {
				userID = user.UserID
			}
		}

		logger.Info("audit",
			zap.String("action", action),
			zap.String("user_id", userID),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestid.Value(c)),
		)
	}
}

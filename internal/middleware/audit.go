package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/middleware/requestid"
)

// Audit writes one structured audit record per successful mutating request.
// Failed requests are already covered by the access log.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit")

	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actorID := ""
		role := ""
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, ok := value.(*models.JWTClaims); ok {
				actorID = claims.ActorID()
				role = string(claims.Role)
			}
		}

		logger.Info(action,
			zap.String("actor_id", actorID),
			zap.String("role", role),
			zap.String("timetable_id", c.Param("id")),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", requestid.Value(c)),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/response"
)

// RequireRoles lets the request through only for the listed roles. It must run
// after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

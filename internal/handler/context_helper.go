package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/middleware"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) string {
	return claimsFromContext(c).ActorID()
}

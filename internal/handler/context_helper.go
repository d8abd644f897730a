package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/middleware"
	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/service"
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

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

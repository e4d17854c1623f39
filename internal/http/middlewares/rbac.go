package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope(c, "unauthorized", "Missing identity context"))
			return
		}
		if role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, errorEnvelope(c, "forbidden", roleRequiredMessage(required)))
			return
		}
		c.Next()
	}
}

func roleRequiredMessage(required string) string {
	if required == "" {
		return "Role required"
	}

	return strings.ToUpper(required[:1]) + required[1:] + " role required"
}

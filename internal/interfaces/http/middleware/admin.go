package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialstax/backend/internal/interfaces/http/dto"
)

// RequireAdmin rejects requests whose token does not carry the admin
// role. Every admin route goes through this single check; handlers never
// inspect the role themselves.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}

		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodePermissionDenied, "Admin role required", GetRequestID(c)))
			return
		}

		c.Next()
	}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-qbank/internal/response"
)

// RequireModerator rejects callers below the moderator role.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !claims.Caller().IsModerator() {
			response.AbortFail(c, http.StatusForbidden, response.ErrModeratorOnly)
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl lets the client keep authenticated GET responses for maxAge.
// Responses vary by token, so shared caches must not serve them.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	value := "private, max-age=" + strconv.Itoa(int(maxAge/time.Second))
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Header("Cache-Control", value)
			c.Writer.Header().Add("Vary", "Authorization")
		}
		c.Next()
	}
}

package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDHeader  = "X-User-ID"
	userIDContext = "user_id"
)

// UserIdentity requires the caller identity header set by the fronting
// gateway. Requests without it are rejected before reaching a handler.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(userIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing " + userIDHeader + " header",
			})
			return
		}
		c.Set(userIDContext, userID)
		c.Next()
	}
}

// UserIDFromContext returns the authenticated user id for the request.
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(userIDContext)
}

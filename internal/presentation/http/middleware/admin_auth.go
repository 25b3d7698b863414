package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/AtRiskMedia/tractstack-telemetry/pkg/config"
	"github.com/gin-gonic/gin"
)

// IsAdmin reports whether the request carries the admin bearer token.
// Admin access is disabled while ADMIN_PASSWORD is unset.
func IsAdmin(c *gin.Context) bool {
	if config.AdminPassword == "" {
		return false
	}
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		token = c.Query("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(config.AdminPassword)) == 1
}

// AdminAuthMiddleware protects operator endpoints.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

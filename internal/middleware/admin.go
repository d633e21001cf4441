package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyMiddleware gates admin endpoints behind a shared operator key sent
// in the X-Admin-Key header. Only the bcrypt hash of the key is configured on
// the server side.
func AdminKeyMiddleware(adminKeyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKeyHash == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access not configured"})
			c.Abort()
			return
		}

		key := c.GetHeader("X-Admin-Key")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin key required"})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid admin key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

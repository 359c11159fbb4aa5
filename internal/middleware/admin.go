package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminChecker reports whether an email belongs to an administrator.
type AdminChecker interface {
	IsAdmin(email string) bool
}

// AdminMiddleware must run after AuthMiddleware. It allows only accounts whose
// email is on the admin allow-list.
func AdminMiddleware(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get the email from AuthMiddleware
		email := c.GetString(KeyAccountEmail)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account not found in context (AuthMiddleware must run first)"})
			return
		}

		// 2. Check permission
		if !admins.IsAdmin(email) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: administrator required"})
			return
		}
		c.Next()
	}
}

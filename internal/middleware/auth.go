package middleware

import (
	"net/http"
	"strings"

	"github.com/01moynul/familyhub-golang/internal/auth"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	KeyAccountID    = "accountID"
	KeyAccountEmail = "accountEmail"
	KeyAccountName  = "accountName"
)

// AuthMiddleware requires a valid Bearer token and stores the caller's identity
// in the gin context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		id, err := auth.ValidateToken(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Success ---
		c.Set(KeyAccountID, id.AccountID)
		c.Set(KeyAccountEmail, id.Email)
		c.Set(KeyAccountName, id.Name)
		c.Next()
	}
}

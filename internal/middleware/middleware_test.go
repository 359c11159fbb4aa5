package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/01moynul/familyhub-golang/internal/auth"
	"github.com/01moynul/familyhub-golang/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{AdminEmails: []string{"admin@x.com"}}

	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account": c.GetString(KeyAccountID), "email": c.GetString(KeyAccountEmail)})
	})
	r.GET("/admin", AuthMiddleware(secret), AdminMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func bearer(t *testing.T, email string) string {
	tok, err := auth.GenerateToken(secret, auth.Identity{AccountID: "acct-1", Email: email}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(r *gin.Engine, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	w := do(r, "/me", bearer(t, "jane@x.com"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"account":"acct-1","email":"jane@x.com"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer garbage").Code)
}

func TestAdminMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusNoContent, do(r, "/admin", bearer(t, "ADMIN@x.com")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", bearer(t, "jane@x.com")).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", "").Code)
}

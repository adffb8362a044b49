package middleware

import (
	"net/http"

	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// RequireAdmin rejects callers without the ADMIN role. It must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := GetIdentity(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !ident.IsAdmin() {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}
		c.Next()
	}
}

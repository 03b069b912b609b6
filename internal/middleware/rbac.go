package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/response"
)

// RequireAnyRole lets the request through when the user holds at least one of roles.
func RequireAnyRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx := GetAuth(c)
		if authCtx == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if authCtx.User.Roles.HasAny(roles...) {
			c.Next()
			return
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
)

// Inflight rejects a second submission of action on the same target while the
// first one is still being processed. The target is the value of path param
// param, or "-" for routes without one.
func Inflight(guard *service.InflightGuard, action, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx := GetAuth(c)
		if authCtx == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		target := "-"
		if param != "" {
			target = c.Param(param)
		}

		release, ok, err := guard.Acquire(c.Request.Context(), authCtx.User.ID, action, target)
		if err != nil {
			// Redis trouble must not block the user; let the request through unguarded.
			_ = c.Error(err)
			c.Next()
			return
		}
		if !ok {
			response.AbortFail(c, http.StatusConflict, response.ErrRequestInFlight)
			return
		}
		defer release()
		c.Next()
	}
}

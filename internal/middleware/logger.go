package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/response"
)

// RequestLogger writes one structured access line per request.
// 5xx responses log at error level and 4xx at warn. Errors attached with
// c.Error, such as a fail-open Redis outage, are included and raise a
// successful request to warn.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		case len(c.Errors) > 0:
			ev = log.Warn()
		default:
			ev = log.Info()
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ev = ev.Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", response.RequestID(c))
		if auth := GetAuth(c); auth != nil {
			ev = ev.Int("user_id", auth.User.ID)
		}
		if len(c.Errors) > 0 {
			ev = ev.Strs("errors", c.Errors.Errors())
		}
		ev.Msg("request")
	}
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/poller"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
	"github.com/stemsi/exstem-console/internal/validator"
	ws "github.com/stemsi/exstem-console/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams auto-refreshing snapshots. Each connection owns one
// poller, started on upgrade and stopped when the socket closes.
type WSHandler struct {
	dashboardService *service.DashboardService
	sessionService   *service.ExamSessionService
	sessionInterval  time.Duration
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	dashboardService *service.DashboardService,
	sessionService *service.ExamSessionService,
	sessionInterval time.Duration,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		dashboardService: dashboardService,
		sessionService:   sessionService,
		sessionInterval:  sessionInterval,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// ProctorDashboard godoc
// WS /ws/v1/proctor/dashboard
func (h *WSHandler) ProctorDashboard(c *gin.Context) {
	auth := middleware.GetAuth(c)
	stream(h, c, "proctor_dashboard", func(publish func(poller.Result[*service.ProctorSnapshot])) *poller.Poller[*service.ProctorSnapshot] {
		return h.dashboardService.ProctorPoller(auth, publish)
	})
}

// AdminDashboard godoc
// WS /ws/v1/admin/dashboard
func (h *WSHandler) AdminDashboard(c *gin.Context) {
	auth := middleware.GetAuth(c)
	stream(h, c, "admin_dashboard", func(publish func(poller.Result[*service.AdminSnapshot])) *poller.Poller[*service.AdminSnapshot] {
		return h.dashboardService.AdminPoller(auth, publish)
	})
}

// Monitor godoc
// WS /ws/v1/proctor/sessions/:id/monitor
func (h *WSHandler) Monitor(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	auth := middleware.GetAuth(c)
	stream(h, c, "monitor", func(publish func(poller.Result[*service.MonitorSnapshot])) *poller.Poller[*service.MonitorSnapshot] {
		return h.dashboardService.MonitorPoller(auth, sessionID, publish)
	})
}

// Sessions godoc
// WS /ws/v1/teacher/sessions?subject=&status=&q=
// Keeps the session list's display statuses current without a page reload.
func (h *WSHandler) Sessions(c *gin.Context) {
	var filter model.SessionFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	auth := middleware.GetAuth(c)
	stream(h, c, "sessions", func(publish func(poller.Result[*service.SessionList])) *poller.Poller[*service.SessionList] {
		return h.sessionService.ListPoller(auth, filter, h.sessionInterval, publish)
	})
}

// stream upgrades the request and pumps the poller built by build until the
// client goes away. Client messages only trigger refreshes and pings.
func stream[T any](h *WSHandler, c *gin.Context, name string, build func(publish func(poller.Result[T])) *poller.Poller[T]) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Str("stream", name).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("stream", name).
		Int("user_id", middleware.GetAuth(c).User.ID).
		Logger()
	wsLog.Info().Msg("Stream connected")

	p := build(func(r poller.Result[T]) {
		ev := ws.SnapshotEvent{Event: ws.EventSnapshot, Stream: name, FetchedAt: r.FetchedAt}
		var failure apiFailure
		if r.Err != nil {
			failure = classify(r.Err)
			ev.Code = failure.Code
			ev.Error = failure.Message
			wsLog.Warn().Err(r.Err).Str("code", string(failure.Code)).Msg("Snapshot fetch failed")
		} else {
			ev.Data = r.Data
		}
		if err := conn.WriteTyped(ev); err != nil {
			wsLog.Debug().Err(err).Msg("Snapshot write failed")
		}
		// Polling cannot recover from a rejected token; the client has to log in again.
		if failure.Status == http.StatusUnauthorized {
			wsLog.Info().Msg("Closing stream after upstream rejected the token")
			_ = conn.CloseWith(websocket.ClosePolicyViolation, string(failure.Code))
		}
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	for {
		var msg ws.RequestEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if ws.IsUnexpectedClose(err) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionRefresh:
			go p.Refresh()
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

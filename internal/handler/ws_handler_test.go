package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-console/internal/config"
	"github.com/stemsi/exstem-console/internal/repository"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
	ws "github.com/stemsi/exstem-console/internal/websocket"
)

func dialSessions(t *testing.T, sessions *stubSessions) *websocket.Conn {
	t.Helper()
	svc := service.NewExamSessionService(sessions, stubExams{}, nil, config.OngoingPolicyBlock, zerolog.Nop())
	h := NewWSHandler(nil, svc, time.Hour, zerolog.Nop(), nil)

	r := gin.New()
	r.GET("/ws/sessions", asTeacher, h.Sessions)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) ws.SnapshotEvent {
	t.Helper()
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev ws.SnapshotEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestSessionStreamSendsSnapshot(t *testing.T) {
	conn := dialSessions(t, newStubSessions())

	ev := readSnapshot(t, conn)
	assert.Equal(t, ws.EventSnapshot, ev.Event)
	assert.Equal(t, "sessions", ev.Stream)
	assert.Empty(t, ev.Code)
	assert.NotNil(t, ev.Data)
}

func TestSessionStreamFailureCarriesCode(t *testing.T) {
	sessions := newStubSessions()
	sessions.listErr = &repository.APIError{StatusCode: http.StatusForbidden, Message: "nope"}
	conn := dialSessions(t, sessions)

	ev := readSnapshot(t, conn)
	assert.Equal(t, response.ErrPermissionDenied, ev.Code)
	assert.NotEmpty(t, ev.Error)
	assert.Nil(t, ev.Data)

	// Non-auth failures keep the stream open.
	require.NoError(t, conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), string(ws.EventPong))
}

func TestSessionStreamClosesOnUpstreamUnauthorized(t *testing.T) {
	sessions := newStubSessions()
	sessions.listErr = &repository.APIError{StatusCode: http.StatusUnauthorized, Message: "token expired"}
	conn := dialSessions(t, sessions)

	ev := readSnapshot(t, conn)
	assert.Equal(t, response.ErrUpstreamUnauthorized, ev.Code)

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), err.Error())
}

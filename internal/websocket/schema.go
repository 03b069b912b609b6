package websocket

import (
	"time"

	"github.com/stemsi/exstem-console/internal/response"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionRefresh asks for an immediate re-fetch. It joins a fetch already in flight.
	ActionRefresh Action = "refresh"
	ActionPing    Action = "ping"
)

// RequestEnvelope is the only client message shape: streams take no arguments.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// SnapshotEvent carries one settled fetch of a stream. On failure Data is
// omitted, Code and Error describe the failure and the stream keeps polling,
// except after UPSTREAM_UNAUTHORIZED, where the server closes it.
type SnapshotEvent struct {
	Event     Event            `json:"event"`
	Stream    string           `json:"stream"`
	Data      interface{}      `json:"data,omitempty"`
	Code      response.ErrCode `json:"code,omitempty"`
	Error     string           `json:"error,omitempty"`
	FetchedAt time.Time        `json:"fetched_at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serializes writes to a gorilla connection. Poller publishes and
// replies to client actions come from different goroutines, and gorilla
// allows only one concurrent writer.
type Conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// NewConn wraps an upgraded connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline. Only one goroutine may read.
func (c *Conn) ReadJSON(v interface{}) error {
	c.ws.SetReadDeadline(time.Now().Add(readWait))
	return c.ws.ReadJSON(v)
}

// Close sends a normal close frame, best effort, and closes the connection.
func (c *Conn) Close() error {
	return c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith sends a close frame with code and reason and closes the connection.
// Only the first call has any effect.
func (c *Conn) CloseWith(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// IsUnexpectedClose reports whether err is a close other than a normal or going-away one.
func IsUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure)
}

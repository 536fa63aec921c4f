package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Connection is the part of a WebSocket connection a client uses. It lets
// tests drive clients without a network.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// connWrapper adapts *websocket.Conn to Connection
type connWrapper struct {
	*websocket.Conn
}

// WrapConn adapts a gorilla connection to Connection.
func WrapConn(conn *websocket.Conn) Connection {
	return connWrapper{Conn: conn}
}

// RemoteAddr returns the remote network address as a string
func (c connWrapper) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// UpgraderOptions configures NewUpgrader
type UpgraderOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	// AllowedOrigins lists browser origins permitted to connect. Empty or
	// "*" allows any origin.
	AllowedOrigins []string
}

// NewUpgrader returns an upgrader that checks Origin against the allow
// list. Requests without an Origin header (non-browser clients) pass.
func NewUpgrader(opts UpgraderOptions) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(opts.AllowedOrigins) == 0 {
				return true
			}
			for _, allowed := range opts.AllowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bsanalyzer/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Clients only send heartbeats, so inbound frames stay small.
	maxMessageSize = 512

	sendQueueSize = 64
)

// ClientOptions tunes the keepalive of one connection
type ClientOptions struct {
	// PongWait is how long to wait for any frame before giving up
	PongWait time.Duration
	// PingPeriod must be less than PongWait
	PingPeriod time.Duration
	// TraceID correlates the connection's log lines with the upgrade request
	TraceID string
	// Username is the authenticated dashboard user
	Username string
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	return o
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	traceID     string
	username    string
	remoteAddr  string
	connectedAt time.Time
	opts        ClientOptions

	logger *slog.Logger
}

// NewClient wraps conn for hub.
func NewClient(hub *Hub, conn Connection, opts ClientOptions, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	opts = opts.withDefaults()
	id := uuid.New().String()

	attrs := []any{
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	}
	if opts.Username != "" {
		attrs = append(attrs, slog.String("username", opts.Username))
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
		id:          id,
		traceID:     opts.TraceID,
		username:    opts.Username,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		opts:        opts,
		logger:      logger.With(attrs...),
	}
}

// ID returns the client's generated identifier
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump discards inbound frames and keeps the read deadline fresh. It
// unregisters the client when the connection fails.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.WarnContext(c.context(), "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		// Any frame, heartbeats included, proves the peer is alive.
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	}
}

// WritePump delivers queued messages and pings the peer. It returns when
// the hub closes the send queue or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.DebugContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			c.hub.metrics.recordSent(c.context(), len(message))

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Serve registers the client and starts its pumps. It returns false when
// the hub is stopped, in which case the connection is closed.
func (c *Client) Serve() bool {
	if !c.hub.Register(c) {
		c.conn.Close()
		return false
	}
	go c.WritePump()
	go c.ReadPump()
	return true
}

// Package websocket pushes company lifecycle and extraction events to
// connected admin dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"bsanalyzer/internal/infrastructure"
	"bsanalyzer/pkg/contracts/events"
)

const broadcastQueueSize = 256

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	metrics *Metrics
	logger  *slog.Logger

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in a goroutine. It is a no-op when already
// running.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "closed")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.totalConnections++
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.recordConnection(ctx)
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	greeting, err := encode(events.Message{
		Type: events.MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"message":   "Connected to Balance Sheet Analyzer events",
			"client_id": client.id,
		},
		Timestamp: time.Now().UTC(),
		TraceID:   client.traceID,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- greeting:
	default:
		h.logger.WarnContext(ctx, "Client buffer full, greeting dropped",
			slog.String("client_id", client.id))
	}
}

// removeClient must only be called from the hub loop.
func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.recordDisconnection(ctx, time.Since(client.connectedAt), reason)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			h.mu.Lock()
			h.messagesSent++
			h.mu.Unlock()
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.metrics.recordDropped(client.context(), "client")
		h.removeClient(client, "slow_consumer")
	}

	h.logger.Debug("Broadcast delivered",
		slog.Int("client_count", len(clients)),
		slog.Int("dropped_clients", len(slow)),
		slog.Int("message_size", len(message)))
}

// Broadcast sends a message of the given type to every connected client.
// It never blocks: when the queue is full the message is dropped.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastMessage(events.Message{
		Type:      events.MessageType(messageType),
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// BroadcastMessage queues a fully formed message for every client.
func (h *Hub) BroadcastMessage(msg events.Message) {
	payload, err := encode(msg)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- payload:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.metrics.recordDropped(context.Background(), "broadcast")
		h.logger.Warn("Broadcast queue full, message dropped",
			slog.String("message_type", string(msg.Type)))
	}
}

func encode(msg events.Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Register adds a client to the hub. It returns false when the hub is
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats is a snapshot of hub counters
type Stats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// Stats returns current hub counters
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		MessagesDropped:  h.messagesDropped,
	}
}

// Stop ends the hub loop and closes every client's send queue, which makes
// their write pumps send a close frame.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

package websocket

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bsanalyzer/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(hub *Hub, id string, queue int) *Client {
	return &Client{
		id:          id,
		hub:         hub,
		send:        make(chan []byte, queue),
		connectedAt: time.Now(),
		remoteAddr:  "127.0.0.1:8080",
		logger:      testLogger(),
	}
}

func receive(t *testing.T, c *Client) events.Message {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send queue closed")
		var msg events.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return events.Message{}
	}
}

func TestHubStartStopIdempotent(t *testing.T) {
	hub := NewHub(nil, testLogger())
	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()

	assert.False(t, hub.Register(newTestClient(hub, "late", 1)), "registration after stop is refused")

	done := make(chan struct{})
	go func() {
		hub.Broadcast(string(events.MessageTypeCompanyApproved), nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a stopped hub")
	}
}

func TestHubRegistrationGreets(t *testing.T) {
	hub := NewHub(nil, testLogger())
	hub.Start()
	defer hub.Stop()

	client := newTestClient(hub, "client-1", 4)
	client.traceID = "trace-1"
	require.True(t, hub.Register(client))

	msg := receive(t, client)
	assert.Equal(t, events.MessageTypeConnection, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "connected", data["status"])
	assert.Equal(t, "client-1", data["client_id"])
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open, "unregister closes the send queue")
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil, testLogger())
	hub.Start()
	defer hub.Stop()

	clients := []*Client{
		newTestClient(hub, "a", 4),
		newTestClient(hub, "b", 4),
		newTestClient(hub, "c", 4),
	}
	for _, c := range clients {
		require.True(t, hub.Register(c))
		receive(t, c)
	}

	hub.Broadcast(string(events.MessageTypeCompanyRegistered), events.CompanyRegistered{
		CompanyID: "acme",
		Username:  "alice",
	})

	for _, c := range clients {
		msg := receive(t, c)
		assert.Equal(t, events.MessageTypeCompanyRegistered, msg.Type)
		assert.False(t, msg.Timestamp.IsZero())
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, "acme", data["company_id"])
	}

	assert.Eventually(t, func() bool { return hub.Stats().MessagesSent == 3 }, time.Second, 5*time.Millisecond)
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(nil, testLogger())
	hub.Start()
	defer hub.Stop()

	slow := newTestClient(hub, "slow", 0)
	fast := newTestClient(hub, "fast", 4)
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))
	receive(t, fast)

	hub.Broadcast(string(events.MessageTypePlotsRegenerated), nil)

	receive(t, fast)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-slow.send
	assert.False(t, open)
}

func TestHubBroadcastQueueFull(t *testing.T) {
	hub := NewHub(nil, testLogger())
	for i := 0; i < broadcastQueueSize+3; i++ {
		hub.Broadcast("noise", i)
	}
	assert.EqualValues(t, 3, hub.Stats().MessagesDropped)
}

// pipeConn is an in-memory Connection whose reads block until closed.
type pipeConn struct {
	mu      sync.Mutex
	written []int
	frames  [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{closed: make(chan struct{})}
}

func (p *pipeConn) WriteMessage(messageType int, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closed:
		return errors.New("closed")
	default:
	}
	p.written = append(p.written, messageType)
	p.frames = append(p.frames, data)
	return nil
}

func (p *pipeConn) ReadMessage() (int, []byte, error) {
	<-p.closed
	return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) SetReadDeadline(time.Time) error   { return nil }
func (p *pipeConn) SetWriteDeadline(time.Time) error  { return nil }
func (p *pipeConn) SetReadLimit(int64)                {}
func (p *pipeConn) SetPongHandler(func(string) error) {}
func (p *pipeConn) RemoteAddr() string                { return "pipe" }

func (p *pipeConn) types() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.written...)
}

func TestClientPumps(t *testing.T) {
	hub := NewHub(nil, testLogger())
	hub.Start()

	conn := newPipeConn()
	client := NewClient(hub, conn, ClientOptions{Username: "admin"}, testLogger())
	require.True(t, client.Serve())

	hub.Broadcast(string(events.MessageTypeCompanyApproved), events.CompanyApproved{CompanyID: "acme"})
	assert.Eventually(t, func() bool { return len(conn.types()) == 2 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	assert.Eventually(t, func() bool {
		types := conn.types()
		return len(types) == 3 && types[2] == websocket.CloseMessage
	}, time.Second, 5*time.Millisecond)

	conn.mu.Lock()
	assert.Contains(t, string(conn.frames[1]), `"company.approved"`)
	conn.mu.Unlock()
}

func TestClientOptionsDefaults(t *testing.T) {
	opts := ClientOptions{PongWait: 10 * time.Second, PingPeriod: time.Minute}.withDefaults()
	assert.Equal(t, 9*time.Second, opts.PingPeriod)

	opts = ClientOptions{}.withDefaults()
	assert.Equal(t, 60*time.Second, opts.PongWait)
	assert.Equal(t, 54*time.Second, opts.PingPeriod)
}

func TestEndToEnd(t *testing.T) {
	hub := NewHub(nil, testLogger())
	hub.Start()
	defer hub.Stop()

	upgrader := NewUpgrader(UpgraderOptions{AllowedOrigins: []string{"http://localhost:3000"}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, WrapConn(conn), ClientOptions{}, testLogger()).Serve()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var greeting events.Message
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, events.MessageTypeConnection, greeting.Type)

	hub.Broadcast(string(events.MessageTypePlotsRegenerated), map[string]int{"processed": 4})

	var msg events.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypePlotsRegenerated, msg.Type)
	assert.EqualValues(t, 4, msg.Data.(map[string]interface{})["processed"])
}

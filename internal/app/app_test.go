package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bsanalyzer/internal/config"
	"bsanalyzer/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Paths.BaseDir = dir
	cfg.Database.DSN = filepath.Join(dir, "users.db")
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Security.RateLimit.Enabled = false
	cfg.LLM.APIKey = ""
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(context.Background()) })
	return app
}

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func (c apiClient) do(method, path, token, body string) (int, map[string]interface{}, string) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec.Code, decoded, rec.Body.String()
}

func (c apiClient) login(path, username, password string) string {
	c.t.Helper()
	status, body, raw := c.do(http.MethodPost, path, "",
		`{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(c.t, http.StatusOK, status, raw)
	token, _ := body["access_token"].(string)
	require.NotEmpty(c.t, token)
	return token
}

func TestRegistrationApprovalFlow(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	c := apiClient{t: t, router: app.Router}

	status, body, raw := c.do(http.MethodPost, "/api/register", "",
		`{"username":"alice","password":"wonderland","company_id":"acme"}`)
	require.Equal(t, http.StatusOK, status, raw)
	assert.NotEmpty(t, body["message"])

	status, body, _ = c.do(http.MethodPost, "/api/register", "",
		`{"username":"alice","password":"again","company_id":"acme"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username already exists", body["error"])

	status, body, _ = c.do(http.MethodPost, "/api/login", "", `{"username":"alice","password":"wonderland"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Account pending admin approval", body["error"])

	status, _, _ = c.do(http.MethodGet, "/api/admin/pending-approvals", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	adminToken := c.login("/api/admin/login", "admin", "admin123")

	status, _, raw = c.do(http.MethodGet, "/api/admin/pending-approvals", adminToken, "")
	require.Equal(t, http.StatusOK, status, raw)
	var pending []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "acme", pending[0]["company_id"])
	assert.Equal(t, "alice", pending[0]["requested_by"])

	status, body, raw = c.do(http.MethodPost, "/api/admin/approve-company/acme", adminToken, "")
	require.Equal(t, http.StatusOK, status, raw)
	assert.EqualValues(t, 1, body["users_approved"])

	userToken := c.login("/api/login", "alice", "wonderland")

	status, _, _ = c.do(http.MethodGet, "/api/admin/pending-approvals", userToken, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body, _ = c.do(http.MethodGet, "/api/user/files", adminToken, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "User account required", body["error"])

	status, _, raw = c.do(http.MethodGet, "/api/user/files", userToken, "")
	require.Equal(t, http.StatusOK, status, raw)
	var files []string
	require.NoError(t, json.Unmarshal([]byte(raw), &files))
	assert.Contains(t, files, "sales_data.csv")
	assert.NotContains(t, files, config.HiddenDataFile)

	status, body, raw = c.do(http.MethodGet, "/api/user/file/sales_data.csv", userToken, "")
	require.Equal(t, http.StatusOK, status, raw)
	assert.Equal(t, []interface{}{"Date", "Product", "Quantity", "Revenue"}, body["columns"])
	assert.Len(t, body["data"], 5)

	status, _, _ = c.do(http.MethodGet, "/api/user/file/"+config.HiddenDataFile, userToken, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body, raw = c.do(http.MethodGet, "/api/user/plot/01_plot_AandL", userToken, "")
	require.Equal(t, http.StatusOK, status, raw)
	assert.Contains(t, body, "data")

	status, body, raw = c.do(http.MethodPost, "/api/chat", userToken, `{"message":"How is liquidity?"}`)
	require.Equal(t, http.StatusOK, status, raw)
	assert.Contains(t, body["response"], "How is liquidity?")
	assert.Contains(t, body["response"], "acme")
}

func TestPublicEndpoints(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	c := apiClient{t: t, router: app.Router}

	status, body, raw := c.do(http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, status, raw)
	assert.NotEmpty(t, body["status"])

	status, body, _ = c.do(http.MethodGet, "/api/health/ready", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body, _ = c.do(http.MethodGet, "/api/version", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["version"])

	status, _, _ = c.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	status, _, _ = c.do(http.MethodGet, "/api/user/files", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminEventStream(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	c := apiClient{t: t, router: app.Router}
	adminToken := c.login("/api/admin/login", "admin", "admin123")

	srv := httptest.NewServer(app.Router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+adminToken, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg events.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnection, msg.Type)

	status, _, raw := c.do(http.MethodPost, "/api/register", "",
		`{"username":"bob","password":"builder","company_id":"globex"}`)
	require.Equal(t, http.StatusOK, status, raw)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeCompanyRegistered, msg.Type)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

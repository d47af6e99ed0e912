package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablelink/tablelink/pkg/bus"
	"github.com/tablelink/tablelink/pkg/config"
	"github.com/tablelink/tablelink/pkg/protocol"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Address: "127.0.0.1:0"},
		Relay:  config.RelayConfig{SendBuffer: 16},
	}
}

func setupTestApp(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	ns, err := bus.StartEmbedded()
	require.NoError(t, err)
	t.Cleanup(ns.Shutdown)

	b, err := bus.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(b.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := NewApp(logger, ctx, cfg, b)

	srv := httptest.NewServer(app.http.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestApp(t, testConfig())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestApp(t, testConfig())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tablelink_rooms")
	assert.Contains(t, string(body), "tablelink_clients")
}

func dialAndJoin(t *testing.T, srvURL, room string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)

	join, err := protocol.MakeEnvelope(protocol.TypeJoin, protocol.JoinPayload{Room: room})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, join))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	env, err := protocol.ParseEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeRoomStatus, env.Type)
	return conn
}

func TestWebsocketUpgradeAndJoin(t *testing.T) {
	srv := setupTestApp(t, testConfig())

	conn := dialAndJoin(t, srv.URL, "GAME1")
	conn.Close(websocket.StatusNormalClosure, "")
}

func TestConnectionLimitPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ConnectionLimit.MaxPerIP = 1
	srv := setupTestApp(t, cfg)

	conn := dialAndJoin(t, srv.URL, "GAME1")
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err, "second connection from the same IP must be rejected")
	if resp != nil {
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	}
}

func TestUpgradeWithoutMetadataRejected(t *testing.T) {
	ns, err := bus.StartEmbedded()
	require.NoError(t, err)
	t.Cleanup(ns.Shutdown)

	b, err := bus.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(b.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := NewApp(logger, context.Background(), testConfig(), b)

	// Request that never passed through the metadata middleware.
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	app.upgradeHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPortFromAddress(t *testing.T) {
	port, err := portFromAddress(":8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	port, err = portFromAddress("127.0.0.1:9000")
	require.NoError(t, err)
	assert.Equal(t, 9000, port)

	_, err = portFromAddress("9000")
	assert.Error(t, err)
}

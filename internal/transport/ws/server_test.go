package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/auth"
	"github.com/streamreact/companion/internal/config"
	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/hub"
	"github.com/streamreact/companion/internal/ledger"
	"github.com/streamreact/companion/internal/metrics"
	"github.com/streamreact/companion/internal/protocol"
	"github.com/streamreact/companion/internal/service"
	"github.com/streamreact/companion/internal/session"
	"github.com/streamreact/companion/tests/helpers"
)

type testServer struct {
	url      string
	verifier *auth.JWTVerifier
	sessions *session.ShardedRegistry
	hub      *hub.Hub
}

func newTestServer(t *testing.T, burst int) *testServer {
	t.Helper()

	cfg := &config.Config{
		PingInterval:   time.Minute,
		WriteTimeout:   time.Second,
		ReadTimeout:    time.Minute,
		MaxMessageSize: 4096,
		ChatMaxLength:  100,
		ChatRate:       0.001,
		ChatBurst:      burst,
	}
	st := helpers.NewTestSQLiteStore(t)
	require.NoError(t, st.CreateTrigger(context.Background(), &domain.Trigger{
		Keyword: "привет", VideoURL: "/v/hi.mp4", Category: "greeting", Priority: 1, Active: true,
	}))
	l, err := ledger.New(decimal.NewFromInt(100), decimal.NewFromInt(100))
	require.NoError(t, err)

	h := hub.NewHub(zap.NewNop())
	sessions := session.NewRegistry()
	verifier := auth.NewJWTVerifier("ws-secret", time.Hour)
	m := metrics.New()
	svc := service.New(st, l, sessions, verifier, h, cfg, m, zap.NewNop())

	e := echo.New()
	e.GET("/ws", NewServer(cfg, h, svc, m, zap.NewNop()).HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testServer{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		verifier: verifier,
		sessions: sessions,
		hub:      h,
	}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func read(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env protocol.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func (s *testServer) authenticate(t *testing.T, conn *websocket.Conn, username string) {
	t.Helper()
	token, err := s.verifier.Issue(domain.Identity{ID: "id-" + username, Username: username, Role: domain.RoleUser})
	require.NoError(t, err)
	send(t, conn, `{"event":"authenticate","data":"`+token+`"}`)
	env := read(t, conn)
	require.Equal(t, protocol.EventAuthenticated, env.Event)
	require.Contains(t, string(env.Data), `"success":true`)
}

func TestChatRoundTrip(t *testing.T) {
	s := newTestServer(t, 10)
	alice, bob := s.dial(t), s.dial(t)
	require.Eventually(t, func() bool { return s.hub.GetConnectionCount() == 2 }, 3*time.Second, 10*time.Millisecond)

	s.authenticate(t, alice, "alice")
	send(t, alice, `{"event":"chat:message","data":{"content":"привет всем"}}`)

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := read(t, conn)
		assert.Equal(t, protocol.EventChatMessage, msg.Event)
		assert.Contains(t, string(msg.Data), "привет всем")

		reaction := read(t, conn)
		assert.Equal(t, protocol.EventChatReaction, reaction.Event)
		assert.Contains(t, string(reaction.Data), `"videoUrl":"/v/hi.mp4"`)
	}
}

func TestUnauthenticatedChatGetsError(t *testing.T) {
	s := newTestServer(t, 10)
	conn := s.dial(t)

	send(t, conn, `{"event":"chat:message","data":{"content":"hi"}}`)
	env := read(t, conn)
	assert.Equal(t, protocol.EventError, env.Event)
	assert.JSONEq(t, `{"message":"not authorized"}`, string(env.Data))
}

func TestMalformedFramesKeepConnectionOpen(t *testing.T) {
	s := newTestServer(t, 10)
	conn := s.dial(t)

	send(t, conn, `not json`)
	assert.Equal(t, protocol.EventError, read(t, conn).Event)

	send(t, conn, `{"event":"teleport","data":{}}`)
	env := read(t, conn)
	assert.Equal(t, protocol.EventError, env.Event)
	assert.Contains(t, string(env.Data), "unknown event")

	// Still usable afterwards.
	s.authenticate(t, conn, "carol")
}

func TestChatFloodIsRateLimited(t *testing.T) {
	s := newTestServer(t, 1)
	conn := s.dial(t)
	s.authenticate(t, conn, "dave")

	send(t, conn, `{"event":"chat:message","data":{"content":"one"}}`)
	assert.Equal(t, protocol.EventChatMessage, read(t, conn).Event)

	send(t, conn, `{"event":"chat:message","data":{"content":"two"}}`)
	env := read(t, conn)
	assert.Equal(t, protocol.EventError, env.Event)
	assert.JSONEq(t, `{"message":"rate limit exceeded"}`, string(env.Data))
}

func TestDisconnectUnregistersSession(t *testing.T) {
	s := newTestServer(t, 10)
	conn := s.dial(t)
	s.authenticate(t, conn, "erin")

	live, authenticated := s.sessions.Count()
	assert.Equal(t, 1, live)
	assert.Equal(t, 1, authenticated)

	conn.Close()
	require.Eventually(t, func() bool {
		live, _ := s.sessions.Count()
		return live == 0 && s.hub.GetConnectionCount() == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker("http://localhost:5173, https://stream.example")

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://stream.example")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker("*")(req))
}

package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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
	"github.com/streamreact/companion/internal/policy"
	"github.com/streamreact/companion/internal/repository"
	"github.com/streamreact/companion/internal/service"
	"github.com/streamreact/companion/internal/session"
	"github.com/streamreact/companion/tests/helpers"
)

type testAPI struct {
	echo     *echo.Echo
	handler  *Handler
	store    *store.SQLiteStore
	ledger   *ledger.Ledger
	verifier *auth.JWTVerifier
}

func newTestHandler(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	db := helpers.NewTestSQLiteStore(t)
	l, err := ledger.Load(ctx, db, decimal.NewFromInt(1000000))
	require.NoError(t, err)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	verifier := auth.NewJWTVerifier("api-secret", time.Hour)
	m := metrics.New()
	cfg := &config.Config{ChatMaxLength: 100}
	svc := service.New(db, l, session.NewRegistry(), verifier, hub.NewHub(zap.NewNop()), cfg, m, zap.NewNop())

	e := echo.New()
	h := NewHandler(svc, policyEngine, m, zap.NewNop())
	h.RegisterRoutes(e)

	return &testAPI{echo: e, handler: h, store: db, ledger: l, verifier: verifier}
}

func (a *testAPI) token(t *testing.T, role domain.Role) string {
	t.Helper()
	token, err := a.verifier.Issue(domain.Identity{ID: "u-" + string(role), Username: string(role), Role: role})
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	api := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := api.echo.NewContext(req, rec)

	require.NoError(t, api.handler.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, 0.0, resp["connections"])
}

func TestHealthReportsDatabaseOutage(t *testing.T) {
	api := newTestHandler(t)
	require.NoError(t, api.store.Close())

	rec := api.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestHandler(t)

	rec := api.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "companion_live_connections")
}

func TestInvalidBearerTokenIsRejected(t *testing.T) {
	api := newTestHandler(t)

	rec := api.do(http.MethodGet, "/api/balance", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/balance", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic abc")
	rec = httptest.NewRecorder()
	api.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListTriggersAndFeeds(t *testing.T) {
	api := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, api.store.CreateTrigger(ctx, &domain.Trigger{Keyword: "привет", VideoURL: "/v.mp4", Category: "greeting", Priority: 1, Active: true}))
	require.NoError(t, api.store.CreateMessage(ctx, &domain.ChatMessage{Content: "hi", AuthorID: "u1", AuthorName: "alice"}))
	require.NoError(t, api.store.CreateDonation(ctx, &domain.Donation{Amount: decimal.NewFromInt(5), AuthorID: "u1", AuthorName: "alice"}))

	rec := api.do(http.MethodGet, "/api/triggers", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var triggers []domain.Trigger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &triggers))
	require.Len(t, triggers, 1)
	assert.Equal(t, "привет", triggers[0].Keyword)

	rec = api.do(http.MethodGet, "/api/messages?limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"hi"`)

	rec = api.do(http.MethodGet, "/api/donations", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":5`)

	rec = api.do(http.MethodGet, "/api/messages?limit=lots", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

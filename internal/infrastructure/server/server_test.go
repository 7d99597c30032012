package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/flowhq/flow/internal/application/services"
	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/logger"
)

func init() {
	services.PasswordCost = bcrypt.MinCost
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Flow", Version: "test", PublicURL: "http://app.test"},
		Session: config.SessionConfig{
			Secret:          "test-secret",
			TTL:             time.Hour,
			RefreshInterval: time.Hour,
			CookieName:      "session",
			Issuer:          "flow-test",
		},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "*",
			StrictLimit:        config.RateLimitPolicy{Requests: 100, Window: time.Minute},
			ModerateLimit:      config.RateLimitPolicy{Requests: 1000, Window: time.Minute},
			LocalLimiterCap:    100,
		},
		Invitations: config.InvitationsConfig{TTL: 24 * time.Hour},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	srv, err := New(cfg, NewMemoryStore(), nil, logger.NewNop())
	require.NoError(t, err)
	return srv.Handler()
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, handler: h}
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name != "session" {
			continue
		}
		if ck.MaxAge < 0 {
			c.cookie = nil
		} else {
			c.cookie = ck
		}
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (c *client) signup(name, email string) map[string]interface{} {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(c.t, c.cookie)
	return decode(c.t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))

	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = c.do(http.MethodGet, "/health/detailed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	checks := decode(t, rec)["checks"].(map[string]interface{})
	assert.Equal(t, "disabled", checks["redis"].(map[string]interface{})["status"])
	assert.Equal(t, "ok", checks["database"].(map[string]interface{})["status"])

	rec = c.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	srv, err := New(testConfig(), NewMemoryStore(), nil, logger.FromZap(zap.New(core)))
	require.NoError(t, err)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("HTTP request").FilterField(zap.String("request_id", "req-123")).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/health", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status_code"])
	assert.Equal(t, http.MethodGet, fields["method"])

	req = httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-404")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries = logs.FilterMessage("HTTP request").FilterField(zap.String("request_id", "req-404")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusNotFound), entries[0].ContextMap()["status_code"])
	assert.Contains(t, entries[0].ContextMap()["error"], "Not Found")
}

func TestRequiresSession(t *testing.T) {
	h := newTestServer(t, testConfig())
	c := newClient(t, h)

	rec := c.do(http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "unauthorized"}, decode(t, rec))

	c.cookie = &http.Cookie{Name: "session", Value: "forged"}
	rec = c.do(http.MethodGet, "/api/v1/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))

	user := c.signup("Jane Doe", "Jane@Example.com")
	assert.Equal(t, "jane@example.com", user["email"])
	assert.NotContains(t, user, "passwordHash")

	rec := c.do(http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane Doe", decode(t, rec)["name"])

	rec = c.do(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name": "Again", "email": "jane@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.cookie)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/v1/users/me", nil).Code)

	rec = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "jane@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode(t, rec)["error"])

	rec = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "jane@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, c.cookie)

	// The same token is accepted as a bearer credential.
	token := c.cookie.Value
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	bearer := httptest.NewRecorder()
	c.handler.ServeHTTP(bearer, req)
	assert.Equal(t, http.StatusOK, bearer.Code)
}

func TestRequestValidation(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))

	rec := c.do(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name": "Jane", "email": "not-an-email", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email must be a valid email", decode(t, rec)["error"])

	rec = c.do(http.MethodPost, "/api/v1/auth/signup", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request format", decode(t, rec)["error"])

	c.signup("Jane", "jane@example.com")
	rec = c.do(http.MethodGet, "/api/v1/projects/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", decode(t, rec)["error"])

	rec = c.do(http.MethodGet, "/api/v1/analytics/trend?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid days", decode(t, rec)["error"])
}

func TestBoardWorkflow(t *testing.T) {
	h := newTestServer(t, testConfig())
	owner := newClient(t, h)
	owner.signup("Owner", "owner@example.com")

	rec := owner.do(http.MethodPost, "/api/v1/projects", map[string]string{"name": "Flow", "template": "software"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode(t, rec)
	assert.Equal(t, "FLO", project["key"])
	projectID := project["id"].(string)

	rec = owner.do(http.MethodPost, "/api/v1/projects/"+projectID+"/tasks", map[string]interface{}{
		"title": "Write docs", "priority": "HIGH", "labels": []string{"documentation"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode(t, rec)
	assert.Equal(t, "FLO-1", task["ticketId"])
	assert.Equal(t, "TODO", task["status"])
	taskID := task["id"].(string)

	rec = owner.do(http.MethodPost, "/api/v1/projects/"+projectID+"/tasks", map[string]interface{}{"title": "Bad", "status": "LIMBO"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status does not match any column", decode(t, rec)["error"])

	rec = owner.do(http.MethodPost, "/api/v1/tasks/"+taskID+"/subtasks", map[string]string{"text": "outline"})
	require.Equal(t, http.StatusCreated, rec.Code)
	subtasks := decodeList(t, rec)
	require.Len(t, subtasks, 1)

	rec = owner.do(http.MethodPatch, fmt.Sprintf("/api/v1/tasks/%s/subtasks/%s", taskID, subtasks[0]["id"]), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeList(t, rec)[0]["completed"])

	rec = owner.do(http.MethodPost, "/api/v1/tasks/"+taskID+"/comments", map[string]string{"text": "first draft is up"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = owner.do(http.MethodPatch, "/api/v1/tasks/"+taskID, map[string]interface{}{"assigneeId": nil, "title": "Write the docs"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Write the docs", decode(t, rec)["title"])

	rec = owner.do(http.MethodPut, "/api/v1/tasks/"+taskID+"/move", map[string]interface{}{"status": "DONE", "order": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DONE", decode(t, rec)["status"])

	rec = owner.do(http.MethodGet, "/api/v1/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Len(t, got["comments"], 1)
	assert.Len(t, got["subtasks"], 1)

	rec = owner.do(http.MethodGet, "/api/v1/analytics/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, float64(1), stats["completed"])

	rec = owner.do(http.MethodGet, "/api/v1/analytics/trend?days=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trend := decodeList(t, rec)
	require.Len(t, trend, 3)
	assert.Equal(t, float64(1), trend[2]["count"])

	rec = owner.do(http.MethodGet, "/api/v1/projects/"+projectID+"/activity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	activity := decodeList(t, rec)
	assert.Equal(t, "TASK_MOVED", activity[0]["action"])

	rec = owner.do(http.MethodGet, "/api/v1/tasks/"+taskID+"/activity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeList(t, rec))

	rec = owner.do(http.MethodDelete, "/api/v1/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, owner.do(http.MethodGet, "/api/v1/tasks/"+taskID, nil).Code)
}

func TestInvitationWorkflow(t *testing.T) {
	h := newTestServer(t, testConfig())
	owner := newClient(t, h)
	owner.signup("Owner", "owner@example.com")
	bob := newClient(t, h)
	bob.signup("Bob", "bob@example.com")

	rec := owner.do(http.MethodPost, "/api/v1/projects", map[string]string{"name": "Flow"})
	require.Equal(t, http.StatusCreated, rec.Code)
	projectID := decode(t, rec)["id"].(string)

	rec = bob.do(http.MethodGet, "/api/v1/projects/"+projectID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not a member of this project", decode(t, rec)["error"])

	rec = owner.do(http.MethodPost, "/api/v1/projects/"+projectID+"/invitations", map[string]string{"email": "bob@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, decode(t, rec), "token")

	rec = owner.do(http.MethodPost, "/api/v1/projects/"+projectID+"/invitations", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = bob.do(http.MethodGet, "/api/v1/invitations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeList(t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "Flow", mine[0]["projectName"])
	assert.Equal(t, "Owner", mine[0]["inviterName"])
	token := mine[0]["token"].(string)

	rec = bob.do(http.MethodPost, "/api/v1/invitations/accept", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, projectID, decode(t, rec)["id"])

	rec = bob.do(http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = bob.do(http.MethodDelete, "/api/v1/projects/"+projectID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = owner.do(http.MethodGet, "/api/v1/projects/"+projectID+"/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decodeList(t, rec)
	require.Len(t, members, 2)
	var bobID interface{}
	for _, m := range members {
		if m["email"] == "bob@example.com" {
			bobID = m["id"]
		}
	}
	require.NotNil(t, bobID)

	rec = owner.do(http.MethodDelete, fmt.Sprintf("/api/v1/projects/%s/members/%s", projectID, bobID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodGet, "/api/v1/projects/"+projectID, nil).Code)
}

func TestStrictRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.StrictLimit = config.RateLimitPolicy{Requests: 2, Window: time.Minute}
	c := newClient(t, newTestServer(t, cfg))

	login := map[string]string{"email": "ghost@example.com", "password": "whatever"}
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/v1/auth/login", login).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/v1/auth/login", login).Code)

	rec := c.do(http.MethodPost, "/api/v1/auth/login", login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.True(t, strings.Contains(decode(t, rec)["error"].(string), "Too many requests"))
}

func TestSessionIsRefreshed(t *testing.T) {
	cfg := testConfig()
	cfg.Session.RefreshInterval = 0
	c := newClient(t, newTestServer(t, cfg))
	c.signup("Jane", "jane@example.com")

	rec := c.do(http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies())
}

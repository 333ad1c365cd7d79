package api

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/taskboard/internal/auth"
	"github.com/tgienger/taskboard/internal/db"
	"github.com/tgienger/taskboard/internal/services"
)

type envelope struct {
	Error        bool   `json:"error"`
	Message      string `json:"message"`
	Status       int    `json:"status"`
	ErrorDetails *struct {
		Field string `json:"field"`
		Code  struct {
			Code string `json:"code"`
		} `json:"code"`
	} `json:"errorDetails"`
	Data stdjson.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.Local)
	svc := services.New(store,
		services.WithClock(func() time.Time { return now }),
		services.WithTokens(auth.NewTokens("test-secret", time.Hour)),
	)
	_, err = svc.EnsureAdmin(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	return &testServer{t: t, handler: NewRouter(svc, opts)}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		buf.Write(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, env.Message)

	var data loginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Token
}

func (s *testServer) register(username string) (int64, string) {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/users", "", map[string]string{"username": username, "password": "secret1"})
	require.Equal(s.t, http.StatusCreated, rec.Code, env.Message)

	var u struct {
		ID int64 `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &u))
	return u.ID, s.login(username, "secret1")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})
	rec, env := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.Error)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, Options{})

	rec, env := s.do(http.MethodPost, "/api/projects", "", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, env.Error)

	rec, _ = s.do(http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAndMe(t *testing.T) {
	s := newTestServer(t, Options{})
	_, token := s.register("maria")

	rec, env := s.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "maria", me.Username)
	assert.Equal(t, "member", me.Role)

	rec, env = s.do(http.MethodPost, "/api/users", "", map[string]string{"username": "maria", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.ErrorDetails.Code.Code)

	rec, env = s.do(http.MethodPost, "/api/users", "", map[string]string{"username": "x", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username", env.ErrorDetails.Field)
}

func TestProjectAndTaskFlow(t *testing.T) {
	s := newTestServer(t, Options{})
	admin := s.login("admin", "admin123")
	mariaID, maria := s.register("maria")
	_, bob := s.register("bob")

	rec, _ := s.do(http.MethodPost, "/api/projects", maria, map[string]string{"name": "Nope", "start_date": "2026-04-01"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(http.MethodPost, "/api/projects", admin, map[string]any{
		"name": "Website", "start_date": "2026-03-01", "end_date": "2026-06-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var project struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))

	rec, env = s.do(http.MethodPost, "/api/tasks", admin, map[string]any{
		"project_id": project.ID, "title": "Landing page", "due_date": "2026-04-10", "assignee_id": mariaID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)
	var task struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, "pending", task.State)

	taskPath := "/api/tasks/" + itoa(task.ID)

	rec, _ = s.do(http.MethodPut, taskPath, bob, map[string]string{"state": "completed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(http.MethodPut, taskPath, maria, map[string]string{"state": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	rec, env = s.do(http.MethodGet, taskPath+"/history", maria, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "State changed from 'pending' to 'in_progress'", history[1].Action)

	rec, _ = s.do(http.MethodPost, taskPath+"/comments", bob, map[string]string{"content": "Nice!"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/notifications/unread-count", maria, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count struct {
		Unread int `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &count))
	assert.Equal(t, 3, count.Unread)

	rec, _ = s.do(http.MethodPost, "/api/notifications/read-all", maria, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env = s.do(http.MethodGet, "/api/notifications?unread=true", maria, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unread []any
	require.NoError(t, json.Unmarshal(env.Data, &unread))
	assert.Empty(t, unread)

	rec, env = s.do(http.MethodGet, "/api/tasks?project="+itoa(project.ID)+"&q=landing", maria, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []any
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	assert.Len(t, tasks, 1)

	rec, _ = s.do(http.MethodGet, "/api/tasks?due_from=soon", maria, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodDelete, "/api/projects/"+itoa(project.ID), admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodGet, taskPath, maria, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, Options{LoginRate: 0.001, LoginBurst: 2})

	for i := 0; i < 2; i++ {
		rec, _ := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "admin123"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, env.Error)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

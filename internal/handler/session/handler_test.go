package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consultant/internal/model/chat"
	"github.com/zhouzirui/consultant/internal/model/mode"
	consultService "github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/service/consult/consulttest"
)

func setupRouter(t *testing.T) (*chi.Mux, *consultService.Engine, string) {
	t.Helper()
	engine := consulttest.NewEngine(t, &consulttest.Gateway{})
	dir := t.TempDir()

	r := chi.NewRouter()
	New(engine, dir, nil).RegisterRoutes(r)
	return r, engine, dir
}

func do(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSessionBecomesCurrent(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/sessions", map[string]string{"name": "Q1 Launch"})
	require.Equal(t, http.StatusCreated, resp.Code)

	var created chat.Info
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "Q1 Launch", created.Name)
	assert.Regexp(t, `^session_\d{8}_\d{6}_\d+$`, created.ID)

	resp = do(r, http.MethodGet, "/sessions/current", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var current chat.Info
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &current))
	assert.Equal(t, created.ID, current.ID)
}

func TestCreateSessionWithoutBody(t *testing.T) {
	r, _, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), "Untitled")
}

func TestCurrentSessionEmpty(t *testing.T) {
	r, _, _ := setupRouter(t)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodGet, "/sessions/current", nil).Code)
}

func TestSelectAndList(t *testing.T) {
	r, engine, _ := setupRouter(t)
	first := engine.CreateSession("a")
	engine.CreateSession("b")

	resp := do(r, http.MethodPost, "/sessions/"+first.ID+"/select", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	current, ok := engine.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, first.ID, current.ID)

	resp = do(r, http.MethodGet, "/sessions", nil)
	var infos []chat.Info
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/sessions/missing/select", nil).Code)
}

func TestMessagesAndReset(t *testing.T) {
	r, engine, _ := setupRouter(t)
	info := engine.CreateSession("Q1 Launch")
	_, err := engine.Turn(t.Context(), info.ID, mode.Strategy, "hello")
	require.NoError(t, err)

	resp := do(r, http.MethodGet, "/sessions/"+info.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var msgs []chat.Message
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)

	require.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/sessions/"+info.ID+"/messages", nil).Code)
	history, err := engine.History(info.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/sessions/missing/messages", nil).Code)
}

func TestExportSession(t *testing.T) {
	r, engine, dir := setupRouter(t)
	info := engine.CreateSession("Q1 Launch")

	resp := do(r, http.MethodPost, "/sessions/"+info.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	_, err := os.Stat(filepath.Join(dir, "session_"+info.ID+".json"))
	require.NoError(t, err)

	resp = do(r, http.MethodPost, "/sessions/"+info.ID+"/export", map[string]string{"filename": "plan.yaml"})
	require.Equal(t, http.StatusOK, resp.Code)
	_, err = os.Stat(filepath.Join(dir, "plan.yaml"))
	require.NoError(t, err)

	resp = do(r, http.MethodPost, "/sessions/"+info.ID+"/export", map[string]string{"filename": "../escape.json"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/sessions/missing/export", nil).Code)
}

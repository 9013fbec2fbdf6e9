package consult

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consultant/internal/model/chat"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
	consultService "github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/service/consult/consulttest"
)

func setupRouter(t *testing.T) (*chi.Mux, *consultService.Engine, *consulttest.Gateway) {
	t.Helper()
	gw := &consulttest.Gateway{}
	engine := consulttest.NewEngine(t, gw)

	r := chi.NewRouter()
	New(engine, nil).RegisterRoutes(r)
	return r, engine, gw
}

func post(r http.Handler, target string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestTurnReturnsReply(t *testing.T) {
	r, engine, gw := setupRouter(t)
	info := engine.CreateSession("Q1 Launch")

	resp := post(r, "/sessions/"+info.ID+"/turns", map[string]any{
		"mode":        "social-media",
		"message":     "Plan launch for PLAN-X",
		"temperature": 0.3,
		"maxTokens":   400,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var body replyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, mode.SocialMedia, body.Mode)
	assert.Equal(t, "re: Plan launch for PLAN-X", body.Reply)

	params := gw.Params()
	require.Len(t, params, 1)
	assert.Equal(t, ai.Params{Temperature: 0.3, MaxOutputTokens: 400}, params[0])
}

func TestTurnErrors(t *testing.T) {
	r, engine, _ := setupRouter(t)
	info := engine.CreateSession("")

	assert.Equal(t, http.StatusNotFound, post(r, "/sessions/missing/turns", map[string]string{"message": "hi"}).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/sessions/"+info.ID+"/turns", map[string]string{"mode": "poetry", "message": "hi"}).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/sessions/"+info.ID+"/turns", map[string]string{"message": "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/sessions/"+info.ID+"/turns", map[string]any{"message": "hi", "temperature": 1.5}).Code)
}

func TestTurnProviderFailureKeepsUserMessage(t *testing.T) {
	r, engine, gw := setupRouter(t)
	info := engine.CreateSession("")
	gw.Fail(&ai.Failure{Kind: ai.KindTimeout, Err: errors.New("deadline")})

	resp := post(r, "/sessions/"+info.ID+"/turns", map[string]string{"mode": "seo", "message": "audit"})
	require.Equal(t, http.StatusGatewayTimeout, resp.Code)
	assert.Contains(t, resp.Body.String(), `"kind":"timeout"`)

	history, err := engine.History(info.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, chat.RoleUser, history[0].Role)

	resp = post(r, "/sessions/"+info.ID+"/retry", map[string]string{"mode": "seo"})
	require.Equal(t, http.StatusOK, resp.Code)
	history, err = engine.History(info.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	assert.Equal(t, http.StatusConflict, post(r, "/sessions/"+info.ID+"/retry", map[string]string{"mode": "seo"}).Code)
}

func TestWorkflowRoute(t *testing.T) {
	r, engine, gw := setupRouter(t)
	info := engine.CreateSession("")

	resp := post(r, "/sessions/"+info.ID+"/workflows/social", map[string]string{
		"industry":        "bakery",
		"target audience": "local families",
		"budget":          "$500/mo",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var body replyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, mode.SocialMedia, body.Mode)
	assert.Contains(t, body.Reply, "local families")
	require.Len(t, gw.Instructions(), 1)
}

func TestWorkflowRouteValidation(t *testing.T) {
	r, engine, _ := setupRouter(t)
	info := engine.CreateSession("")

	resp := post(r, "/sessions/"+info.ID+"/workflows/budget", map[string]string{"goals": "growth"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "total_budget")

	assert.Equal(t, http.StatusBadRequest, post(r, "/sessions/"+info.ID+"/workflows/haiku", map[string]string{}).Code)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"llamachat-backend/internal/config"
	"llamachat-backend/internal/gateway"
	"llamachat-backend/internal/model"
	"llamachat-backend/internal/service"
	"llamachat-backend/internal/session"
	"llamachat-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGateway struct {
	completion gateway.Completion
}

func (g *scriptedGateway) Complete(ctx context.Context, req gateway.Request) gateway.Completion {
	return g.completion
}

func newTestRouter(t *testing.T, completion gateway.Completion) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		LLM: config.LLMConfig{
			Provider:     config.ProviderGroq,
			Models:       []string{"llama3-8b-8192", "llama3-70b-8192"},
			DefaultModel: "llama3-8b-8192",
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		},
	}
	store := session.NewStore(storage.NewMemoryStorage())
	svc := service.NewChatService(store, &scriptedGateway{completion: completion}, cfg.LLM)
	return NewRouter(cfg, NewChatHandler(svc))
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, gateway.Completion{Content: "ok"})

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestGetModels(t *testing.T) {
	r := newTestRouter(t, gateway.Completion{Content: "ok"})

	w := doJSON(t, r, http.MethodGet, "/api/chat/models", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[model.ModelsResponse](t, w)
	assert.Equal(t, []string{"llama3-8b-8192", "llama3-70b-8192"}, resp.Models)
	assert.Equal(t, "llama3-8b-8192", resp.Default)
}

func TestSendMessageCreatesSession(t *testing.T) {
	r := newTestRouter(t, gateway.Completion{Content: "Hi there"})

	w := doJSON(t, r, http.MethodPost, "/api/chat/message", gin.H{"message": "Hello world"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[model.ChatResponse](t, w)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Hello world", resp.Title)
	assert.Equal(t, "Hi there", resp.Assistant.Content)
	assert.False(t, resp.Failed)

	w = doJSON(t, r, http.MethodGet, "/api/chat/session/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	active := decode[model.ActiveSessionResponse](t, w)
	assert.Equal(t, resp.SessionID, active.SessionID)
	assert.Len(t, active.Messages, 2)
}

func TestSendMessageGatewayFailureStillOK(t *testing.T) {
	r := newTestRouter(t, gateway.Completion{Err: &gateway.GatewayError{Message: "rate limited"}})

	w := doJSON(t, r, http.MethodPost, "/api/chat/message", gin.H{"message": "hi"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[model.ChatResponse](t, w)
	assert.True(t, resp.Failed)
	assert.Equal(t, "❌ Error: rate limited", resp.Assistant.Content)
}

func TestSendMessageBadRequests(t *testing.T) {
	r := newTestRouter(t, gateway.Completion{Content: "ok"})

	cases := []struct {
		name string
		body any
	}{
		{"missing message", gin.H{}},
		{"blank message", gin.H{"message": "   "}},
		{"unknown model", gin.H{"message": "hi", "model": "gpt-4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/chat/message", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	r := newTestRouter(t, gateway.Completion{Content: "ok"})

	first := decode[model.ChatResponse](t, doJSON(t, r, http.MethodPost, "/api/chat/message", gin.H{"message": "first"}))

	w := doJSON(t, r, http.MethodPost, "/api/chat/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[model.SessionResponse](t, w)
	assert.Equal(t, model.DefaultChatTitle, created.Title)
	assert.True(t, created.Active)

	w = doJSON(t, r, http.MethodGet, "/api/chat/session/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Sessions []model.SessionResponse `json:"sessions"`
	}](t, w)
	require.Len(t, list.Sessions, 2)

	w = doJSON(t, r, http.MethodPut, "/api/chat/session/"+first.SessionID+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	active := decode[model.ActiveSessionResponse](t, w)
	assert.Equal(t, first.SessionID, active.SessionID)
	assert.Len(t, active.Messages, 2)

	w = doJSON(t, r, http.MethodPut, "/api/chat/session/"+first.SessionID, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/chat/session/missing/activate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/chat/session/missing", gin.H{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/chat/session/"+first.SessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/chat/session/"+first.SessionID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/chat/session/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[model.ActiveSessionResponse](t, w)
	assert.Empty(t, empty.SessionID)
	assert.Empty(t, empty.Messages)

	w = doJSON(t, r, http.MethodPost, "/api/chat/session/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decode[struct {
		Sessions []model.SessionResponse `json:"sessions"`
	}](t, doJSON(t, r, http.MethodGet, "/api/chat/session/list", nil))
	assert.Empty(t, list.Sessions)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(session.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(service.ErrUnknownModel))
	assert.Equal(t, http.StatusBadRequest, statusFor(service.ErrEmptyMessage))
	assert.Equal(t, http.StatusInternalServerError, statusFor(storage.ErrInvalidData))
}

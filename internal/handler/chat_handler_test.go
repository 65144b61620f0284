package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/repoinsight/internal/handler"
	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/queue"
)

type stubProcessor struct {
	last model.ChatRequest
}

func (p *stubProcessor) Process(ctx context.Context, req model.ChatRequest) model.ChatResponse {
	p.last = req
	return model.ChatResponse{ChatHistory: []model.QARound{{Question: req.Question, Answer: "stub answer"}}}
}

func setupRouter(t *testing.T) (*gin.Engine, *stubProcessor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	proc := &stubProcessor{}
	q := queue.NewMemoryQueue()
	router := gin.New()
	handler.RegisterRoutes(&router.RouterGroup, handler.RouterDeps{
		Chat:   handler.NewChatHandler(proc),
		WS:     handler.NewWSHandler(q),
		Health: handler.NewHealthHandler(q),
	})
	return router, proc
}

func TestChatEndpoint(t *testing.T) {
	router, proc := setupRouter(t)

	body := `{"user_id":"u1","question":"what changed?","repo_url":"https://github.com/org/repo"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", proc.last.UserID)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.ChatHistory, 1)
	require.Equal(t, "stub answer", resp.ChatHistory[0].Answer)
}

func TestChatEndpointRejectsBadBody(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "detail")
}

func TestChatEndpointRejectsMissingFields(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_id":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "question")
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

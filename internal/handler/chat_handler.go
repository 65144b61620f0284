package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/repoinsight/internal/model"
)

// Processor is the orchestrator capability the gateway drives on the
// synchronous path.
type Processor interface {
	Process(ctx context.Context, req model.ChatRequest) model.ChatResponse
}

type ChatHandler struct {
	chat Processor
}

func NewChatHandler(chat Processor) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Chat is the synchronous variant: it bypasses the queue and invokes the
// orchestrator inside the request/response cycle, returning the same
// ChatResponse shape the websocket path delivers.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	resp := h.chat.Process(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/repoinsight/internal/queue"
)

type HealthHandler struct {
	queue queue.Queue
}

func NewHealthHandler(q queue.Queue) *HealthHandler {
	return &HealthHandler{queue: q}
}

func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.queue.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Chat   *ChatHandler
	WS     *WSHandler
	Health *HealthHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/chat", deps.Chat.Chat)
	api.GET("/ws/chat", deps.WS.Handle)
	api.GET("/healthz", deps.Health.Health)
}

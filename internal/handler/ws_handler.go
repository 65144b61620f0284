package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/queue"
)

// WSHandler serves the persistent duplex gateway: inbound frames are
// validated and published to chat_requests, while a pump goroutine forwards
// every chat_responses frame back to the client. Closing the connection
// cancels the pump but not worker computations already in flight; their
// responses stay on the queue for whoever consumes next.
type WSHandler struct {
	queue    queue.Queue
	upgrader websocket.Upgrader
}

func NewWSHandler(q queue.Queue) *WSHandler {
	return &WSHandler{
		queue: q,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// wsConn serializes writes: the pump goroutine and error frames from the
// read loop share one connection, and gorilla allows a single writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) writeError(msg string) error {
	data, _ := json.Marshal(gin.H{"error": msg})
	return w.write(data)
}

func (h *WSHandler) Handle(c *gin.Context) {
	logger := logutil.GetLogger(c.Request.Context())
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()
	logger.Info("websocket connection accepted")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	conn := &wsConn{conn: raw}
	go h.pumpResponses(ctx, conn)

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			logger.Info("websocket connection closed", zap.Error(err))
			return
		}
		var req model.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			// Malformed frames get an error frame; the connection stays up.
			_ = conn.writeError("invalid message: expected json with user_id, question and repo_url")
			continue
		}
		if err := req.Validate(); err != nil {
			_ = conn.writeError(err.Error())
			continue
		}
		if err := h.queue.Publish(ctx, queue.ChannelChatRequests, data); err != nil {
			logger.Error("publish chat request", zap.Error(err))
			_ = conn.writeError("failed to enqueue request")
			continue
		}
		logger.Debug("chat request enqueued", zap.String("user_id", req.UserID))
	}
}

func (h *WSHandler) pumpResponses(ctx context.Context, conn *wsConn) {
	logger := logutil.GetLogger(ctx)
	consumer := h.queue.Consume(queue.ChannelChatResponses)
	for {
		payload, err := consumer.Next(ctx)
		if err != nil {
			return
		}
		if err := conn.write(payload); err != nil {
			logger.Info("response delivery stopped", zap.Error(err))
			return
		}
	}
}

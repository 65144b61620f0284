package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/queue"
)

// Processor is the orchestrator capability the worker drives.
type Processor interface {
	Process(ctx context.Context, req model.ChatRequest) model.ChatResponse
}

// Worker pulls chat requests off the queue one at a time, runs the
// orchestrator and publishes the serialized response. Requests are handled
// strictly in dequeue order within one worker.
type Worker struct {
	queue queue.Queue
	chat  Processor
}

func New(q queue.Queue, chat Processor) *Worker {
	return &Worker{queue: q, chat: chat}
}

// Run blocks until ctx is canceled. Malformed messages are logged and
// skipped; orchestrator failures surface as empty responses, so nothing a
// client sends can stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	logger.Info("worker started", zap.String("channel", queue.ChannelChatRequests))
	consumer := w.queue.Consume(queue.ChannelChatRequests)
	for {
		payload, err := consumer.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("worker stopping")
				return nil
			}
			return err
		}
		w.handle(ctx, payload)
	}
}

func (w *Worker) handle(ctx context.Context, payload []byte) {
	logger := logutil.GetLogger(ctx)
	var req model.ChatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		logger.Error("drop undecodable chat request", zap.Error(err))
		return
	}
	if err := req.Validate(); err != nil {
		logger.Error("drop invalid chat request", zap.Error(err))
		return
	}

	resp := w.chat.Process(ctx, req)
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Error("encode chat response", zap.Error(err))
		return
	}
	if err := w.queue.Publish(ctx, queue.ChannelChatResponses, data); err != nil {
		logger.Error("publish chat response", zap.String("user_id", req.UserID), zap.Error(err))
	}
}

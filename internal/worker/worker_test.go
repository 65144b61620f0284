package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/queue"
	"github.com/xxxsen/repoinsight/internal/worker"
)

type stubProcessor struct {
	seen chan model.ChatRequest
}

func (p *stubProcessor) Process(ctx context.Context, req model.ChatRequest) model.ChatResponse {
	p.seen <- req
	return model.ChatResponse{ChatHistory: []model.QARound{{Question: req.Question, Answer: "answer for " + req.UserID}}}
}

func TestWorkerRoundTrip(t *testing.T) {
	q := queue.NewMemoryQueue()
	proc := &stubProcessor{seen: make(chan model.ChatRequest, 1)}
	w := worker.New(q, proc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	req := model.ChatRequest{UserID: "u1", Question: "q1", RepoURL: "https://github.com/org/repo"}
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, queue.ChannelChatRequests, payload))

	select {
	case got := <-proc.seen:
		require.Equal(t, req, got)
	case <-time.After(time.Second):
		t.Fatal("request never reached the processor")
	}

	out, err := q.Consume(queue.ChannelChatResponses).Next(ctx)
	require.NoError(t, err)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Len(t, resp.ChatHistory, 1)
	require.Equal(t, "answer for u1", resp.ChatHistory[0].Answer)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestWorkerDropsInvalidMessages(t *testing.T) {
	q := queue.NewMemoryQueue()
	proc := &stubProcessor{seen: make(chan model.ChatRequest, 1)}
	w := worker.New(q, proc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, q.Publish(ctx, queue.ChannelChatRequests, []byte("not json")))
	require.NoError(t, q.Publish(ctx, queue.ChannelChatRequests, []byte(`{"user_id":"u1"}`)))

	valid := model.ChatRequest{UserID: "u1", Question: "q1", RepoURL: "https://github.com/org/repo"}
	payload, err := json.Marshal(valid)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, queue.ChannelChatRequests, payload))

	// Only the valid request makes it through; the loop survived the junk.
	select {
	case got := <-proc.seen:
		require.Equal(t, valid, got)
	case <-time.After(time.Second):
		t.Fatal("valid request never reached the processor")
	}
}

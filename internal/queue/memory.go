package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

const memoryChannelDepth = 1024

// MemoryQueue is an in-process broker for tests and single-process runs
// where the gateway and worker share one binary.
type MemoryQueue struct {
	mu       sync.Mutex
	channels map[string]chan []byte
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{channels: make(map[string]chan []byte)}
}

func (q *MemoryQueue) channel(name string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.channels[name]
	if !ok {
		ch = make(chan []byte, memoryChannelDepth)
		q.channels[name] = ch
	}
	return ch
}

func (q *MemoryQueue) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.channel(channel) <- payload:
		return nil
	default:
		return fmt.Errorf("%w: channel %q is full", errs.ErrQueue, channel)
	}
}

func (q *MemoryQueue) Consume(channel string) Consumer {
	return &memoryConsumer{ch: q.channel(channel)}
}

func (q *MemoryQueue) Ping(ctx context.Context) error {
	return nil
}

type memoryConsumer struct {
	ch chan []byte
}

func (c *memoryConsumer) Next(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-c.ch:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

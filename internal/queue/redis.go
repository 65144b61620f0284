package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

const (
	defaultPollTimeout = 5 * time.Second
	maxRetryBackoff    = 30 * time.Second
)

// RedisQueue backs each channel with a redis list: LPUSH to publish, BRPOP
// to consume. Messages survive gateway and worker restarts; delivery is
// at-most-once (BRPOP removes the message before it is processed).
type RedisQueue struct {
	client      *redis.Client
	pollTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, pollTimeout time.Duration) (*RedisQueue, error) {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	q := &RedisQueue{client: client, pollTimeout: pollTimeout}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Ping(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func queueKey(channel string) string {
	return "queue:" + channel
}

func (q *RedisQueue) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := q.client.LPush(ctx, queueKey(channel), payload).Err(); err != nil {
		return fmt.Errorf("%w: publish to %q: %v", errs.ErrQueue, channel, err)
	}
	return nil
}

func (q *RedisQueue) Consume(channel string) Consumer {
	return &redisConsumer{
		client:      q.client,
		key:         queueKey(channel),
		pollTimeout: q.pollTimeout,
	}
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping broker: %v", errs.ErrQueue, err)
	}
	return nil
}

type redisConsumer struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
	backoff     time.Duration
}

// Next blocks on BRPOP until a message arrives. Transient broker errors are
// retried with growing backoff instead of killing the consumer; ctx
// cancellation is checked between every dequeue attempt.
func (c *redisConsumer) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := c.client.BRPop(ctx, c.pollTimeout, c.key).Result()
		if err == nil {
			c.backoff = 0
			// BRPOP returns [key, value].
			return []byte(res[1]), nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.backoff = c.backoff*2 + time.Second
		if c.backoff > maxRetryBackoff {
			c.backoff = maxRetryBackoff
		}
		logutil.GetLogger(ctx).Warn("broker dequeue failed, retrying",
			zap.String("channel", c.key),
			zap.Duration("backoff", c.backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

const activityKey = "session_active"

// RedisStore keeps each session as a list of JSON messages under
// session:<user_id>, plus a shared hash of last-activity timestamps used by
// the idle sweep. Lists give atomic per-key appends, so multiple worker
// processes can share one store without extra locking.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(userID string) string {
	return "session:" + userID
}

func (s *RedisStore) Exists(ctx context.Context, userID string) (bool, error) {
	ok, err := s.client.HExists(ctx, activityKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: session exists: %v", errs.ErrStorage, err)
	}
	return ok, nil
}

func (s *RedisStore) Create(ctx context.Context, userID string) error {
	if err := s.touch(ctx, userID, false); err != nil {
		return err
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, userID string, msg model.SessionMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode session message: %w", err)
	}
	if err := s.client.RPush(ctx, sessionKey(userID), data).Err(); err != nil {
		return fmt.Errorf("%w: append session message: %v", errs.ErrStorage, err)
	}
	return s.touch(ctx, userID, true)
}

func (s *RedisStore) History(ctx context.Context, userID string) ([]model.SessionMessage, error) {
	raw, err := s.client.LRange(ctx, sessionKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read session history: %v", errs.ErrStorage, err)
	}
	msgs := make([]model.SessionMessage, 0, len(raw))
	for _, item := range raw {
		var msg model.SessionMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode session message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: clear session: %v", errs.ErrStorage, err)
	}
	if err := s.client.HDel(ctx, activityKey, userID).Err(); err != nil {
		return fmt.Errorf("%w: clear session activity: %v", errs.ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) IdleSessions(ctx context.Context, cutoff time.Time) ([]string, error) {
	entries, err := s.client.HGetAll(ctx, activityKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list session activity: %v", errs.ErrStorage, err)
	}
	var idle []string
	for userID, tsStr := range entries {
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		if time.Unix(ts, 0).Before(cutoff) {
			idle = append(idle, userID)
		}
	}
	return idle, nil
}

func (s *RedisStore) touch(ctx context.Context, userID string, force bool) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	var err error
	if force {
		err = s.client.HSet(ctx, activityKey, userID, ts).Err()
	} else {
		err = s.client.HSetNX(ctx, activityKey, userID, ts).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: touch session: %v", errs.ErrStorage, err)
	}
	return nil
}

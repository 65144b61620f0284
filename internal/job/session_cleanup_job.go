package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/repoinsight/internal/session"
)

// SessionCleanupJob clears conversation logs with no activity inside the
// idle TTL. Without it the session store grows without bound.
type SessionCleanupJob struct {
	sessions session.Store
	idleTTL  time.Duration
}

func NewSessionCleanupJob(sessions session.Store, idleTTL time.Duration) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions, idleTTL: idleTTL}
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	if j.idleTTL <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-j.idleTTL)
	idle, err := j.sessions.IdleSessions(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, userID := range idle {
		if err := j.sessions.Clear(ctx, userID); err != nil {
			logutil.GetLogger(ctx).Error("clear idle session", zap.String("user_id", userID), zap.Error(err))
			continue
		}
	}
	if len(idle) > 0 {
		logutil.GetLogger(ctx).Info("idle sessions cleared", zap.Int("count", len(idle)))
	}
	return nil
}

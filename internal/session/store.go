package session

import (
	"context"
	"time"

	"github.com/xxxsen/repoinsight/internal/model"
)

// Store maintains per-user ordered conversation logs. Implementations are
// expected to be shared, externally synchronized services; append to a
// user's log must be atomic per key.
type Store interface {
	Exists(ctx context.Context, userID string) (bool, error)
	// Create is idempotent: a no-op when the session already exists.
	Create(ctx context.Context, userID string) error
	Append(ctx context.Context, userID string, msg model.SessionMessage) error
	// History returns the session's messages in append order, or an empty
	// sequence when no session exists.
	History(ctx context.Context, userID string) ([]model.SessionMessage, error)
	// Clear removes the session and all of its messages.
	Clear(ctx context.Context, userID string) error
	// IdleSessions lists user ids with no activity since the cutoff; the
	// cleanup job feeds these back into Clear.
	IdleSessions(ctx context.Context, cutoff time.Time) ([]string, error)
}

package job_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/repoinsight/internal/job"
	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/session"
)

func TestSessionCleanupClearsIdleSessions(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "stale", model.SessionMessage{Role: model.RoleUser, Content: "q"}))

	time.Sleep(20 * time.Millisecond)
	cleanup := job.NewSessionCleanupJob(store, 10*time.Millisecond)
	require.Equal(t, "session_cleanup", cleanup.Name())
	require.NoError(t, cleanup.Run(ctx))

	ok, err := store.Exists(ctx, "stale")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionCleanupKeepsActiveSessions(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "active", model.SessionMessage{Role: model.RoleUser, Content: "q"}))

	cleanup := job.NewSessionCleanupJob(store, time.Hour)
	require.NoError(t, cleanup.Run(ctx))

	ok, err := store.Exists(ctx, "active")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSessionCleanupDisabledWithoutTTL(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "u1", model.SessionMessage{Role: model.RoleUser, Content: "q"}))

	cleanup := job.NewSessionCleanupJob(store, 0)
	require.NoError(t, cleanup.Run(ctx))

	ok, err := store.Exists(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
}

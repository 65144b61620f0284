package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/repoinsight/internal/pkg/errs"
	"github.com/xxxsen/repoinsight/internal/vectorstore"
)

func TestMemoryStoreSaveAndGetAll(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()

	ok, err := store.Has(ctx, "repo")
	require.NoError(t, err)
	require.False(t, ok)

	err = store.SaveBatch(ctx, "repo",
		[]string{"first", "second"},
		[][]float32{{1, 0}, {0, 1}},
	)
	require.NoError(t, err)

	ok, err = store.Has(ctx, "repo")
	require.NoError(t, err)
	require.True(t, ok)

	docs, err := store.GetAll(ctx, "repo")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "first", docs[0].Text)
	require.Equal(t, "second", docs[1].Text)
	require.Equal(t, []float32{1, 0}, docs[0].Embedding)
	require.NotEmpty(t, docs[0].ID)
	require.NotEqual(t, docs[0].ID, docs[1].ID)
	require.Equal(t, "repo", docs[0].Collection)
}

func TestMemoryStoreDimensionGuard(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, "repo", []string{"a"}, [][]float32{{1, 0, 0}}))

	err := store.SaveBatch(ctx, "repo", []string{"b", "c"}, [][]float32{{1, 0, 0}, {1, 0}})
	require.ErrorIs(t, err, errs.ErrDimensionMismatch)

	// A rejected batch must not change stored content, not even its valid prefix.
	docs, err := store.GetAll(ctx, "repo")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "a", docs[0].Text)
}

func TestMemoryStoreRejectsMalformedBatches(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()

	err := store.SaveBatch(ctx, "repo", nil, nil)
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	err = store.SaveBatch(ctx, "repo", []string{"a", "b"}, [][]float32{{1}})
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	err = store.SaveBatch(ctx, "repo", []string{"a"}, [][]float32{{}})
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestMemoryStoreUnknownCollection(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	_, err := store.GetAll(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrCollectionNotFound)
}

func TestMemoryStoreCopiesOnRead(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveBatch(ctx, "repo", []string{"a"}, [][]float32{{1, 2}}))

	docs, err := store.GetAll(ctx, "repo")
	require.NoError(t, err)
	docs[0].Embedding[0] = 99

	again, err := store.GetAll(ctx, "repo")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, again[0].Embedding)
}

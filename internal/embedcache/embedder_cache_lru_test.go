package embedcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/repoinsight/internal/embedcache"
)

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{1, 2, 3}, nil
}

func (e *countingEmbedder) ModelName() string { return "counting" }

func TestCacheSkipsRepeatedCalls(t *testing.T) {
	inner := &countingEmbedder{}
	emb := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	vec, err := emb.Embed(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, vec)

	_, err = emb.Embed(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	_, err = emb.Embed(context.Background(), "other text")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCacheReturnsIndependentSlices(t *testing.T) {
	inner := &countingEmbedder{}
	emb := embedcache.WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := emb.Embed(context.Background(), "text")
	require.NoError(t, err)
	first[0] = 99

	second, err := emb.Embed(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, second)
}

func TestWrapDisabledReturnsInner(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, inner, embedcache.WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Equal(t, inner, embedcache.WrapLruCacheToEmbedder(inner, 16, 0))
	require.Nil(t, embedcache.WrapLruCacheToEmbedder(nil, 16, time.Minute))
}

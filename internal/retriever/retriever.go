package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/repoinsight/internal/pkg/errs"
	"github.com/xxxsen/repoinsight/internal/vectorstore"
)

// Retriever ranks stored fragments against a query vector by cosine
// similarity. The brute-force scan is O(n*d) per query, which is fine at
// single-repository corpus scale; backends with native search can take over
// when preferNative is set, as long as they keep the same ranking.
type Retriever struct {
	store        vectorstore.Store
	preferNative bool
}

func New(store vectorstore.Store, preferNative bool) *Retriever {
	return &Retriever{store: store, preferNative: preferNative}
}

// TopK returns the texts of the k fragments most similar to the query
// vector, at most min(k, corpus size) entries, deterministically ordered:
// descending similarity, ties broken by insertion order.
func (r *Retriever) TopK(ctx context.Context, collection string, query []float32, k int) ([]string, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query vector has no dimensions", errs.ErrEmptyCorpus)
	}
	if k <= 0 {
		return nil, nil
	}
	if r.preferNative {
		if native, ok := r.store.(vectorstore.NativeSearcher); ok {
			return native.NativeTopK(ctx, collection, query, k)
		}
	}

	docs, err := r.store.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: collection %q has no documents", errs.ErrEmptyCorpus, collection)
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(docs))
	for _, doc := range docs {
		// Documents without an embedding score 0 and sink to the bottom:
		// cosine similarity against a zero vector is defined as 0 here.
		score := 0.0
		if len(doc.Embedding) > 0 {
			score = cosineSimilarity(query, doc.Embedding)
		}
		ranked = append(ranked, scored{text: doc.Text, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	texts := make([]string, 0, k)
	for i := 0; i < k; i++ {
		texts = append(texts, ranked[i].text)
	}
	logutil.GetLogger(ctx).Debug("retrieved context fragments",
		zap.String("collection", collection),
		zap.Int("corpus_size", len(docs)),
		zap.Int("returned", len(texts)),
	)
	return texts, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

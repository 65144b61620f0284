package vectorstore

import (
	"context"
	"net/url"
	"strings"

	"github.com/xxxsen/repoinsight/internal/model"
)

// Store is the capability set every vector backend must provide. Saves are
// append-only; a collection's dimensionality is fixed by the first batch
// written into it.
type Store interface {
	// SaveBatch persists (text, vector) pairs under the collection key,
	// creating the collection on first use. A dimensionality mismatch with
	// the established collection fails with ErrDimensionMismatch and leaves
	// the stored content unchanged.
	SaveBatch(ctx context.Context, collection string, texts []string, vectors [][]float32) error
	// GetAll returns every stored document of the collection, in insertion
	// order. Unknown collections fail with ErrCollectionNotFound.
	GetAll(ctx context.Context, collection string) ([]model.StoredDocument, error)
	// Has reports whether the collection has been created.
	Has(ctx context.Context, collection string) (bool, error)
}

// NativeSearcher is implemented by backends with server-side similarity
// search. Results must follow the same cosine ranking the retriever uses.
type NativeSearcher interface {
	NativeTopK(ctx context.Context, collection string, query []float32, k int) ([]string, error)
}

// DeriveCollectionKey maps a repository URL to its collection namespace:
// scheme and host are dropped, trailing slashes and a trailing ".git" are
// trimmed, and the final path segment remains. Repeated ingestion of the
// same repository therefore reuses the same collection.
func DeriveCollectionKey(repoURL string) string {
	path := repoURL
	if u, err := url.Parse(repoURL); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	return path
}

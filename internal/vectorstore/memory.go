package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

type memoryCollection struct {
	dims int
	docs []model.StoredDocument
}

// MemoryStore keeps collections in process memory. It exists for tests and
// single-process deployments; semantics mirror the postgres backend.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) SaveBatch(ctx context.Context, collection string, texts []string, vectors [][]float32) error {
	if err := validateBatch(texts, vectors); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		col = &memoryCollection{dims: len(vectors[0])}
	}
	// Validate the whole batch before touching stored content.
	for _, vec := range vectors {
		if len(vec) != col.dims {
			return fmt.Errorf("%w: collection %q holds %d-dim vectors, got %d",
				errs.ErrDimensionMismatch, collection, col.dims, len(vec))
		}
	}
	for i := range texts {
		embedding := make([]float32, len(vectors[i]))
		copy(embedding, vectors[i])
		col.docs = append(col.docs, model.StoredDocument{
			ID:         uuid.NewString(),
			Collection: collection,
			Text:       texts[i],
			Embedding:  embedding,
		})
	}
	s.collections[collection] = col
	return nil
}

func (s *MemoryStore) GetAll(ctx context.Context, collection string) ([]model.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrCollectionNotFound, collection)
	}
	docs := make([]model.StoredDocument, len(col.docs))
	copy(docs, col.docs)
	for i := range docs {
		embedding := make([]float32, len(docs[i].Embedding))
		copy(embedding, docs[i].Embedding)
		docs[i].Embedding = embedding
	}
	return docs, nil
}

func (s *MemoryStore) Has(ctx context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

func validateBatch(texts []string, vectors [][]float32) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: empty batch", errs.ErrMalformedInput)
	}
	if len(texts) != len(vectors) {
		return fmt.Errorf("%w: %d texts but %d vectors", errs.ErrMalformedInput, len(texts), len(vectors))
	}
	if len(vectors[0]) == 0 {
		return fmt.Errorf("%w: zero-dimension vector", errs.ErrMalformedInput)
	}
	return nil
}

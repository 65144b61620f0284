package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	dims INT NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	collection TEXT NOT NULL REFERENCES collections(name),
	seq BIGSERIAL,
	content TEXT NOT NULL,
	embedding vector
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

// PostgresStore persists collections in Postgres with the pgvector
// extension. The embedding column is untyped so one table can hold
// collections of different dimensionality; the collections table pins the
// dimension fixed at first write.
type PostgresStore struct {
	db *sqlx.DB
}

func Open(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open vector db: %v", errs.ErrStorage, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: ping vector db: %v", errs.ErrStorage, err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("%w: apply vector db schema: %v", errs.ErrStorage, err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveBatch(ctx context.Context, collection string, texts []string, vectors [][]float32) error {
	if err := validateBatch(texts, vectors); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", errs.ErrStorage, err)
	}
	defer tx.Rollback()

	// Concurrent double-create is benign: ON CONFLICT keeps whichever row
	// won, and the dims recheck below enforces the fixed dimensionality.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, dims) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		collection, len(vectors[0]),
	); err != nil {
		return fmt.Errorf("%w: create collection: %v", errs.ErrStorage, err)
	}
	var dims int
	if err := tx.GetContext(ctx, &dims, `SELECT dims FROM collections WHERE name = $1`, collection); err != nil {
		return fmt.Errorf("%w: read collection dims: %v", errs.ErrStorage, err)
	}
	for _, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("%w: collection %q holds %d-dim vectors, got %d",
				errs.ErrDimensionMismatch, collection, dims, len(vec))
		}
	}
	for i := range texts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, collection, content, embedding) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), collection, texts[i], pgvector.NewVector(vectors[i]),
		); err != nil {
			return fmt.Errorf("%w: insert document: %v", errs.ErrStorage, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", errs.ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) GetAll(ctx context.Context, collection string) ([]model.StoredDocument, error) {
	ok, err := s.Has(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrCollectionNotFound, collection)
	}
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, content, embedding FROM documents WHERE collection = $1 ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: query documents: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	var docs []model.StoredDocument
	for rows.Next() {
		var (
			doc       model.StoredDocument
			embedding pgvector.Vector
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &embedding); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", errs.ErrStorage, err)
		}
		doc.Collection = collection
		doc.Embedding = embedding.Slice()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %v", errs.ErrStorage, err)
	}
	return docs, nil
}

func (s *PostgresStore) Has(ctx context.Context, collection string) (bool, error) {
	var name string
	err := s.db.GetContext(ctx, &name, `SELECT name FROM collections WHERE name = $1`, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: check collection: %v", errs.ErrStorage, err)
	}
	return true, nil
}

// NativeTopK pushes the similarity ranking down to pgvector. `<=>` is
// cosine distance, so ascending distance matches descending similarity.
func (s *PostgresStore) NativeTopK(ctx context.Context, collection string, query []float32, k int) ([]string, error) {
	ok, err := s.Has(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrCollectionNotFound, collection)
	}
	rows, err := s.db.QueryxContext(ctx,
		`SELECT content FROM documents WHERE collection = $1 ORDER BY embedding <=> $2, seq LIMIT $3`,
		collection, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("%w: native top-k: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("%w: scan content: %v", errs.ErrStorage, err)
		}
		texts = append(texts, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate contents: %v", errs.ErrStorage, err)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: collection %q has no documents", errs.ErrEmptyCorpus, collection)
	}
	return texts, nil
}

// Package postgres implements the vector store on PostgreSQL with the
// pgvector extension. Cosine distance comes from the `<=>` operator and
// an HNSW index keeps nearest-neighbor queries fast.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/docsage/docsage/engine/vectorstore"
)

// Store is a pgvector-backed vectorstore.Store.
type Store struct {
	db   *sql.DB
	dims int
}

// New opens a connection pool to the given DSN. Call EnsureSchema before
// first use.
func New(dsn string, dims int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	return &Store{db: db, dims: dims}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the pgvector extension, the chunk table, and the
// cosine HNSW index if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id uuid PRIMARY KEY,
			content text NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}',
			chunk_index integer NOT NULL
		)`, s.dims),
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// TopK returns the k closest chunks by cosine distance.
func (s *Store) TopK(ctx context.Context, vector []float32, k int) ([]vectorstore.Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, chunk_index, metadata, embedding <=> $1 AS distance
		FROM document_chunks
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: topk: %w", err)
	}
	defer rows.Close()

	var matches []vectorstore.Match
	for rows.Next() {
		var m vectorstore.Match
		var metaRaw []byte
		if err := rows.Scan(&m.ID, &m.Content, &m.ChunkIndex, &metaRaw, &m.Distance); err != nil {
			return nil, fmt.Errorf("postgres: topk scan: %w", err)
		}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &m.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: topk metadata: %w", err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: topk rows: %w", err)
	}
	return matches, nil
}

// Upsert stores records in one transaction.
func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: upsert begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (id, content, embedding, metadata, chunk_index)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			chunk_index = EXCLUDED.chunk_index`)
	if err != nil {
		return fmt.Errorf("postgres: upsert prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("postgres: upsert metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Content, pgvector.NewVector(r.Embedding), meta, r.ChunkIndex); err != nil {
			return fmt.Errorf("postgres: upsert %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: upsert commit: %w", err)
	}
	return nil
}

// DeleteAll truncates the chunk table.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks`); err != nil {
		return fmt.Errorf("postgres: delete all: %w", err)
	}
	return nil
}

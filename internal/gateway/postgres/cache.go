// Package postgres provides a PostgreSQL-backed statute cache that survives
// process restarts. Cached embeddings are stored in a pgvector column so a
// restarted process can keep skipping embedding calls for statutes it already
// resolved.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/verdex/internal/gateway"
)

var _ gateway.Cache = (*Cache)(nil)

const ddlStatuteCache = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS statute_cache (
    normalized_id TEXT         PRIMARY KEY,
    title         TEXT         NOT NULL DEFAULT '',
    full_text     TEXT         NOT NULL,
    source_url    TEXT         NOT NULL,
    fetched_at    TIMESTAMPTZ  NOT NULL,
    expires_at    TIMESTAMPTZ  NOT NULL,
    embedding     vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_statute_cache_expires_at
    ON statute_cache (expires_at);

CREATE INDEX IF NOT EXISTS idx_statute_cache_embedding
    ON statute_cache USING hnsw (embedding vector_cosine_ops);
`

// Cache is a durable [gateway.Cache] backed by a PostgreSQL table. Capacity
// management is left to the database, so Pin and Unpin are no-ops. All
// methods are safe for concurrent use.
type Cache struct {
	pool *pgxpool.Pool
}

// NewCache connects to the database at dsn, registers pgvector types on every
// connection and ensures the statute_cache table exists.
//
// embeddingDimensions must match the embedding model's output dimension.
// Changing it after the first migration requires a manual schema change.
func NewCache(ctx context.Context, dsn string, embeddingDimensions int) (*Cache, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres cache: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres cache: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres cache: ping: %w", err)
	}

	ddl := fmt.Sprintf(ddlStatuteCache, embeddingDimensions)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres cache: migrate: %w", err)
	}

	return &Cache{pool: pool}, nil
}

// Get implements [gateway.Cache].
func (c *Cache) Get(ctx context.Context, id string) (*gateway.Entry, error) {
	const q = `
		SELECT normalized_id, title, full_text, source_url, fetched_at, expires_at, embedding
		FROM statute_cache
		WHERE normalized_id = $1`

	var (
		entry gateway.Entry
		vec   *pgvector.Vector
	)
	err := c.pool.QueryRow(ctx, q, id).Scan(
		&entry.Record.NormalizedID,
		&entry.Record.Title,
		&entry.Record.FullText,
		&entry.Record.SourceURL,
		&entry.Record.FetchedAt,
		&entry.ExpiresAt,
		&vec,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres cache: get %s: %w", id, err)
	}
	if vec != nil {
		entry.Record.Embedding = vec.Slice()
	}
	return &entry, nil
}

// Put implements [gateway.Cache]. It upserts the entry, replacing any
// previous row for the same id wholesale.
func (c *Cache) Put(ctx context.Context, entry *gateway.Entry) error {
	const q = `
		INSERT INTO statute_cache
		    (normalized_id, title, full_text, source_url, fetched_at, expires_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (normalized_id) DO UPDATE SET
		    title      = EXCLUDED.title,
		    full_text  = EXCLUDED.full_text,
		    source_url = EXCLUDED.source_url,
		    fetched_at = EXCLUDED.fetched_at,
		    expires_at = EXCLUDED.expires_at,
		    embedding  = EXCLUDED.embedding`

	var vec *pgvector.Vector
	if len(entry.Record.Embedding) > 0 {
		v := pgvector.NewVector(entry.Record.Embedding)
		vec = &v
	}

	_, err := c.pool.Exec(ctx, q,
		entry.Record.NormalizedID,
		entry.Record.Title,
		entry.Record.FullText,
		entry.Record.SourceURL,
		entry.Record.FetchedAt,
		entry.ExpiresAt,
		vec,
	)
	if err != nil {
		return fmt.Errorf("postgres cache: put %s: %w", entry.Record.NormalizedID, err)
	}
	return nil
}

// Pin implements [gateway.Cache]. Durable rows are never capacity-evicted,
// so pinning is a no-op.
func (c *Cache) Pin(string) {}

// Unpin implements [gateway.Cache].
func (c *Cache) Unpin(string) {}

// Ping verifies database connectivity. Used by readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres cache: ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() {
	c.pool.Close()
}

// Package postgres stores drug documents in a Postgres JSONB table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/druginfo-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "drug_details"

// Config controls the Postgres connection pool used for drug documents.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
	// EnsureSchema creates the table on open. Read-only callers leave it off.
	EnsureSchema bool
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// DocumentStore upserts documents keyed by URL.
type DocumentStore struct {
	pool  pool
	table string
}

// connect builds the pool for Open. Tests replace it.
var connect = func(ctx context.Context, cfg Config) (pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return p, nil
}

// Open connects and pings. The table is created only when cfg.EnsureSchema is set.
func Open(ctx context.Context, cfg Config) (*DocumentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres_dsn is required")
	}
	p, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool.
func NewWithPool(p pool, table string) (*DocumentStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &DocumentStore{pool: p, table: table}, nil
}

// EnsureSchema creates the documents table.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	url        TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	details    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Upsert replaces the row stored under doc.URL.
func (s *DocumentStore) Upsert(ctx context.Context, doc crawler.Document) error {
	if doc.URL == "" {
		return fmt.Errorf("document url is required")
	}
	details := doc.Details
	if details == nil {
		details = []crawler.Detail{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, name, details, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (url) DO UPDATE SET
	name = EXCLUDED.name,
	details = EXCLUDED.details,
	updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, doc.URL, doc.Name, detailsJSON); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.URL, err)
	}
	return nil
}

// Clear deletes every row.
func (s *DocumentStore) Clear(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.table))
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", s.table, err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the connection.
func (s *DocumentStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *DocumentStore) Close(_ context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

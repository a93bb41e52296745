// Package postgres provides Postgres-backed persistence for crawl
// progress rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/nft-metadata-parser/internal/model"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PoolConfig controls the Postgres connection pool shared by the
// workers and the ingestion loop.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool creates a pgx pool from the provided config. Callers size
// MinConns to at least workers+1 so each worker can hold a dedicated
// connection for its lifetime.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// Querier is the slice of pgx behavior the store needs. It is
// satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// URIStore reads and upserts token_uris rows. One store is typically
// bound to one pooled connection for the lifetime of a worker.
type URIStore struct {
	db    Querier
	table string
}

// NewURIStore constructs a store over an existing pool or connection.
func NewURIStore(db Querier, table string) (*URIStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if table == "" {
		table = "token_uris"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &URIStore{db: db, table: table}, nil
}

const recordColumns = `
	token_uri,
	raw_image_uri,
	raw_animation_uri,
	cdn_json_uri,
	cdn_image_uri,
	cdn_animation_uri,
	json_parser_retry_count,
	image_optimizer_retry_count,
	animation_optimizer_retry_count`

// FindByTokenURI looks a record up by its natural key. A miss returns
// (nil, nil).
func (s *URIStore) FindByTokenURI(ctx context.Context, uri string) (*model.URIRecord, error) {
	return s.findBy(ctx, "token_uri", uri)
}

// FindByRawImageURI looks a record up by its raw image dedup key.
func (s *URIStore) FindByRawImageURI(ctx context.Context, uri string) (*model.URIRecord, error) {
	return s.findBy(ctx, "raw_image_uri", uri)
}

// FindByRawAnimationURI looks a record up by its raw animation dedup key.
func (s *URIStore) FindByRawAnimationURI(ctx context.Context, uri string) (*model.URIRecord, error) {
	return s.findBy(ctx, "raw_animation_uri", uri)
}

func (s *URIStore) findBy(ctx context.Context, column, uri string) (*model.URIRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, recordColumns, s.table, column)

	var rec model.URIRecord
	err := s.db.QueryRow(ctx, query, uri).Scan(
		&rec.TokenURI,
		&rec.RawImageURI,
		&rec.RawAnimationURI,
		&rec.CDNJSONURI,
		&rec.CDNImageURI,
		&rec.CDNAnimationURI,
		&rec.JSONParserRetryCount,
		&rec.ImageOptimizerRetryCount,
		&rec.AnimationOptimizerRetryCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select by %s: %w", column, err)
	}
	return &rec, nil
}

// Upsert writes the record, replacing any existing row with the same
// token_uri. Repeated upserts from concurrent pipeline runs are
// idempotent replacements, so no row locking is needed.
func (s *URIStore) Upsert(ctx context.Context, rec model.URIRecord) error {
	if rec.TokenURI == "" {
		return fmt.Errorf("token uri is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (%s
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)
ON CONFLICT (token_uri) DO UPDATE SET
	raw_image_uri = EXCLUDED.raw_image_uri,
	raw_animation_uri = EXCLUDED.raw_animation_uri,
	cdn_json_uri = EXCLUDED.cdn_json_uri,
	cdn_image_uri = EXCLUDED.cdn_image_uri,
	cdn_animation_uri = EXCLUDED.cdn_animation_uri,
	json_parser_retry_count = EXCLUDED.json_parser_retry_count,
	image_optimizer_retry_count = EXCLUDED.image_optimizer_retry_count,
	animation_optimizer_retry_count = EXCLUDED.animation_optimizer_retry_count`,
		s.table, recordColumns)

	args := []any{
		rec.TokenURI,
		rec.RawImageURI,
		rec.RawAnimationURI,
		rec.CDNJSONURI,
		rec.CDNImageURI,
		rec.CDNAnimationURI,
		rec.JSONParserRetryCount,
		rec.ImageOptimizerRetryCount,
		rec.AnimationOptimizerRetryCount,
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert token uri: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of *pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a Durable backed by the listing_cache table, for
// deployments where several gateway instances share one warm cache.
type PostgresStore struct {
	db querier
}

// NewPostgres wraps a pool. The table is created by the db migrations.
func NewPostgres(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, key string) (Record, bool, error) {
	var rec Record
	err := s.db.QueryRow(ctx,
		`SELECT payload, fetched_at FROM listing_cache WHERE key = $1`,
		key,
	).Scan(&rec.Payload, &rec.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load listing %q: %w", key, err)
	}
	return rec, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, rec Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO listing_cache (key, payload, fetched_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE
		 SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`,
		key, rec.Payload, rec.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("save listing %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM listing_cache WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete listing %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

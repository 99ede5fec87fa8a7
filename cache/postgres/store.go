package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adeilh/spacedash/cache"
)

// Store implements cache.Store on the api_cache table created by the
// db/sql/postgres migrations. Expired rows read as misses until purged.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an existing *sql.DB connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value, expires_at FROM api_cache WHERE key = $1`
	var (
		value     []byte
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres cache: get: %w", err)
	}
	if expiresAt.Valid && !s.now().Before(expiresAt.Time) {
		return nil, cache.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const query = `INSERT INTO api_cache (key, value, expires_at) VALUES ($1, $2, $3)
                   ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(ttl).UTC(), Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("postgres cache: set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM api_cache WHERE key = $1`
	res, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("postgres cache: delete: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return cache.ErrNotFound
	}
	return nil
}

// PurgeExpired removes expired rows and reports how many were deleted.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM api_cache WHERE expires_at IS NOT NULL AND expires_at <= $1`
	res, err := s.db.ExecContext(ctx, query, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres cache: purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

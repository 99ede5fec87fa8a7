// Package postgres opens the lib/pq pool backing the postgres cache and keeps
// its schema current with embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/adeilh/spacedash/logger"
)

var ErrMissingDSN = errors.New("postgres: DSN is required")

// Options configures the pool. Zero values fall back to withDefaults.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
	AutoMigrate     bool
	Logger          *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 10
	}
	if o.MaxIdleConns < 0 {
		o.MaxIdleConns = 0
	}
	if o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// DB is a connected pool. The embedded *sql.DB is what stores query through.
type DB struct {
	*sql.DB
	log *logger.Logger
}

// Connect opens the pool, verifies it with a ping and, when requested,
// migrates the schema before returning.
func Connect(ctx context.Context, opts Options) (*DB, error) {
	if opts.DSN == "" {
		return nil, ErrMissingDSN
	}
	opts = opts.withDefaults()

	sqlDB, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	db := &DB{DB: sqlDB, log: opts.Logger}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if opts.AutoMigrate {
		if err := Migrate(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		version, err := MigrationVersion(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		db.log.Info(db.log.WithField(ctx, "schema_version", version), "postgres.migrated")
	}
	return db, nil
}

// Ping reports whether the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

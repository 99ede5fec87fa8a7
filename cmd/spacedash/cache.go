package main

import (
	"context"
	"fmt"
	"time"

	"github.com/adeilh/spacedash/api"
	"github.com/adeilh/spacedash/cache"
	"github.com/adeilh/spacedash/cache/memory"
	pgcache "github.com/adeilh/spacedash/cache/postgres"
	rediscache "github.com/adeilh/spacedash/cache/redis"
	"github.com/adeilh/spacedash/config"
	"github.com/adeilh/spacedash/db/sql/postgres"
	"github.com/adeilh/spacedash/logger"
)

type cacheBackend struct {
	store  cache.Store
	health api.HealthCheck
	close  func() error
}

func openCache(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*cacheBackend, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		store, err := rediscache.NewStore(rediscache.Options{
			URL:          cfg.Redis.URL,
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Prefix:       cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return &cacheBackend{store: store, health: store.Ping, close: store.Close}, nil

	case config.CacheBackendPostgres:
		db, err := postgres.Connect(ctx, postgres.Options{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			AutoMigrate:     cfg.Postgres.AutoMigrate,
			Logger:          logg,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres cache: %w", err)
		}
		store := pgcache.NewStore(db.DB)
		purgeCtx, cancel := context.WithCancel(context.Background())
		go purgeLoop(purgeCtx, store, cfg.Postgres.PurgeInterval, logg)
		return &cacheBackend{
			store:  store,
			health: db.Ping,
			close: func() error {
				cancel()
				return db.Close()
			},
		}, nil

	default:
		store := memory.NewStore(memory.Options{JanitorInterval: cfg.Cache.JanitorInterval})
		return &cacheBackend{store: store, close: store.Close}, nil
	}
}

func purgeLoop(ctx context.Context, store *pgcache.Store, interval time.Duration, logg *logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logg.Error(ctx, "cache.purge_failed", err)
				continue
			}
			if n > 0 {
				logg.Info(logg.WithField(ctx, "purged", n), "cache.purged")
			}
		}
	}
}

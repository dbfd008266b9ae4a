package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ctf-portal/internal/config"
	"ctf-portal/internal/session"
)

// OpenProvider connects the configured multi-session backend. The returned
// func releases its connections.
func OpenProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Provider, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := session.Ping(ctx, rdb); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		logger.Info("session backend ready", zap.String("backend", "redis"), zap.String("addr", opt.Addr))
		return session.NewRedisProvider(rdb, cfg.Server.SessionTTL), func() { _ = rdb.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := session.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("session backend ready", zap.String("backend", "postgres"))
		return session.NewPostgresProvider(pool, cfg.Server.SessionTTL), pool.Close, nil

	case config.BackendMemory:
		return session.NewMemoryProvider(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("session backend %q cannot hold multiple sessions", cfg.Session.Backend)
}

// OpenStore opens the single store a CLI profile uses. Shared backends keep
// the record under the configured session key.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendFile:
		return session.NewFileStore(cfg.Session.File), func() {}, nil
	case config.BackendMemory:
		return session.NewMemoryStore(), func() {}, nil
	}
	p, closeFn, err := OpenProvider(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return p.Store(cfg.Session.Key), closeFn, nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"bizonboard/internal/config"
	"bizonboard/internal/logging"
	"bizonboard/internal/profile"
)

// slowOp is the latency above which repository calls are logged as warnings.
const slowOp = 500 * time.Millisecond

// Open builds the configured backend wrapped with metrics. Backend "auto"
// picks Firestore when a complete service account is configured and the
// in-memory store otherwise.
func Open(ctx context.Context, cfg config.StoreConfig) (*Instrumented, error) {
	repo, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Instrument(repo, slowOp), nil
}

func open(ctx context.Context, cfg config.StoreConfig) (profile.Repository, error) {
	backend := cfg.Backend
	if backend == "" || backend == config.BackendAuto {
		if cfg.Firestore.HasCredentials() {
			backend = config.BackendFirestore
		} else {
			logging.BootWarn("Firestore credentials missing; using in-memory profile store, profiles will not survive a restart")
			backend = config.BackendMemory
		}
	}

	switch backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendFirestore:
		return NewFirestore(ctx, cfg.Firestore, cfg.Collection)
	case config.BackendPostgres:
		return NewPostgres(ctx, cfg.Postgres.URL, cfg.Collection, cfg.Postgres.MaxConns, cfg.Postgres.MaxRetries)
	case config.BackendRedis:
		return NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Collection, cfg.Redis.MaxRetries)
	case config.BackendSQLite:
		return NewSQLite(cfg.SQLite.Path, cfg.SQLite.Driver, cfg.Collection)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

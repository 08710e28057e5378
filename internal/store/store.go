// Package store opens the configured persistence backend behind one set of
// interfaces, so the API and the CLI work against Postgres or bbolt alike.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/config"
	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/repository"
	"github.com/josh-kwaku/splitledger/internal/repository/boltstore"
)

type ExpenseStore interface {
	Create(ctx context.Context, e *domain.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Expense, error)
	Update(ctx context.Context, e *domain.Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error)
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, userID uuid.UUID) (*repository.IdempotencyCacheEntry, error)
	Reserve(ctx context.Context, entry *repository.IdempotencyCacheEntry) (bool, error)
	Complete(ctx context.Context, entry *repository.IdempotencyCacheEntry) error
	Release(ctx context.Context, key string, userID uuid.UUID) error
	CleanExpired(ctx context.Context) (int64, error)
}

// CLIPool is a small pool for short-lived command line runs.
var CLIPool = repository.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxLifetime: time.Minute, ConnMaxIdleTime: 30 * time.Second}

type Options struct {
	Backend     string
	DatabaseURL string
	BoltPath    string
	AutoMigrate bool
	Pool        repository.PoolConfig
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		BoltPath:    cfg.BoltPath,
		AutoMigrate: cfg.AutoMigrate,
		Pool: repository.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
			ConnectAttempts: cfg.DBConnectAttempts,
		},
	}
}

type Stores struct {
	Expenses    ExpenseStore
	Users       UserStore
	Idempotency IdempotencyStore
	Pinger      interface {
		PingContext(ctx context.Context) error
	}

	close func() error
}

func Open(ctx context.Context, opts Options) (*Stores, error) {
	switch opts.Backend {
	case config.BackendPostgres:
		return openPostgres(ctx, opts)
	case config.BackendBolt:
		return openBolt(opts)
	default:
		return nil, fmt.Errorf("store.Open: unknown backend %q", opts.Backend)
	}
}

func (s *Stores) Close() error {
	return s.close()
}

func openPostgres(ctx context.Context, opts Options) (*Stores, error) {
	db, err := repository.NewPostgresDB(ctx, opts.DatabaseURL, opts.Pool)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}

	if opts.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("store.Open: %w", err)
		}
		slog.Info("database migrations applied")
	}

	return postgresStores(db), nil
}

func postgresStores(db *sql.DB) *Stores {
	return &Stores{
		Expenses:    repository.NewExpenseRepository(db),
		Users:       repository.NewUserRepository(db),
		Idempotency: repository.NewIdempotencyRepository(db),
		Pinger:      db,
		close:       db.Close,
	}
}

func openBolt(opts Options) (*Stores, error) {
	db, err := boltstore.Open(opts.BoltPath)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	return &Stores{
		Expenses:    db.Expenses(),
		Users:       db.Users(),
		Idempotency: db.Idempotency(),
		Pinger:      db,
		close:       db.Close,
	}, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/logging"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectAttempts bounds how often the initial ping is tried while the
	// server is unreachable. Zero means one attempt.
	ConnectAttempts int
}

const connectBackoff = time.Second

// NewPostgresDB opens a pool and pings it. Connectivity failures are retried
// up to pool.ConnectAttempts times, one second apart; any other error fails
// at once.
func NewPostgresDB(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	attempts := max(pool.ConnectAttempts, 1)
	for attempt := 1; ; attempt++ {
		if err = classify(db.PingContext(ctx)); err == nil {
			return db, nil
		}
		if attempt >= attempts || !errors.Is(err, domain.ErrStoreUnavailable) {
			break
		}
		logging.FromContext(ctx).Warn("postgres not reachable, retrying", "attempt", attempt, "error", err)
		if err = sleep(ctx, connectBackoff); err != nil {
			break
		}
	}

	db.Close()
	return nil, fmt.Errorf("NewPostgresDB: ping: %w", err)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

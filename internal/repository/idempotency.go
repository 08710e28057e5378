package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

// IdempotencyCacheEntry is a recorded response to a keyed create request.
// A zero StatusCode marks a reservation whose request is still running.
type IdempotencyCacheEntry struct {
	Key          string
	UserID       uuid.UUID
	RequestHash  string
	StatusCode   int
	Headers      map[string]string
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (e *IdempotencyCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Pending reports whether the entry is a reservation with no response yet.
func (e *IdempotencyCacheEntry) Pending() bool {
	return e.StatusCode == 0
}

type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns nil, nil when no live entry exists for the key.
func (r *IdempotencyRepository) Get(ctx context.Context, key string, userID uuid.UUID) (*IdempotencyCacheEntry, error) {
	var (
		e       IdempotencyCacheEntry
		headers []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT idempotency_key, user_id, request_hash, status_code, response_headers, response_body, created_at, expires_at
		FROM idempotency_cache
		WHERE idempotency_key = $1 AND user_id = $2 AND expires_at > now()`,
		key, userID,
	).Scan(&e.Key, &e.UserID, &e.RequestHash, &e.StatusCode, &headers, &e.ResponseBody, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", classify(err))
	}
	if err := json.Unmarshal(headers, &e.Headers); err != nil {
		return nil, fmt.Errorf("Get: decode headers: %w", err)
	}
	return &e, nil
}

// Reserve claims a key for a request still in flight by inserting a pending
// entry. It reports false when a live entry, pending or complete, already
// holds the key. Expired entries are taken over.
func (r *IdempotencyRepository) Reserve(ctx context.Context, entry *IdempotencyCacheEntry) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO idempotency_cache (idempotency_key, user_id, request_hash, status_code, response_headers, response_body, created_at, expires_at)
		VALUES ($1, $2, $3, 0, '{}'::jsonb, ''::bytea, $4, $5)
		ON CONFLICT (idempotency_key, user_id) DO UPDATE
		SET request_hash = EXCLUDED.request_hash,
			status_code = 0,
			response_headers = '{}'::jsonb,
			response_body = ''::bytea,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_cache.expires_at <= now()`,
		entry.Key, entry.UserID, entry.RequestHash, entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("Reserve: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Reserve: rows affected: %w", err)
	}
	return n == 1, nil
}

// Complete stores the response on a pending entry reserved with the same
// request hash.
func (r *IdempotencyRepository) Complete(ctx context.Context, entry *IdempotencyCacheEntry) error {
	headers := entry.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return fmt.Errorf("Complete: encode headers: %w", err)
	}
	body := entry.ResponseBody
	if body == nil {
		body = []byte{}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE idempotency_cache
		SET status_code = $4, response_headers = $5, response_body = $6, expires_at = $7
		WHERE idempotency_key = $1 AND user_id = $2 AND request_hash = $3 AND status_code = 0`,
		entry.Key, entry.UserID, entry.RequestHash, entry.StatusCode, headerJSON, body, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("Complete: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Complete: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Complete: key %q: %w", entry.Key, domain.ErrNotFound)
	}
	return nil
}

// Release drops a pending entry so the key can be used again.
func (r *IdempotencyRepository) Release(ctx context.Context, key string, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_cache WHERE idempotency_key = $1 AND user_id = $2 AND status_code = 0`,
		key, userID,
	)
	if err != nil {
		return fmt.Errorf("Release: %w", classify(err))
	}
	return nil
}

func (r *IdempotencyRepository) CleanExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_cache WHERE expires_at < now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("CleanExpired: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("CleanExpired: rows affected: %w", err)
	}
	return n, nil
}

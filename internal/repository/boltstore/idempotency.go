package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/repository"
)

type IdempotencyStore struct {
	db  *bbolt.DB
	now func() time.Time
}

func idempotencyKey(key string, userID uuid.UUID) []byte {
	k := make([]byte, 0, len(userID)+len(key))
	k = append(k, userID[:]...)
	return append(k, key...)
}

func (s *IdempotencyStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Get returns nil, nil when no live entry exists for the key.
func (s *IdempotencyStore) Get(ctx context.Context, key string, userID uuid.UUID) (*repository.IdempotencyCacheEntry, error) {
	var entry *repository.IdempotencyCacheEntry
	err := view(ctx, s.db, func(tx *bbolt.Tx) error {
		data := tx.Bucket(idempotencyBucket).Get(idempotencyKey(key, userID))
		if data == nil {
			return nil
		}
		var e repository.IdempotencyCacheEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}
		if !e.Expired(s.clock()) {
			entry = &e
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return entry, nil
}

// Reserve puts a pending entry unless a live one already holds the key.
// The check and the put share one write transaction.
func (s *IdempotencyStore) Reserve(ctx context.Context, entry *repository.IdempotencyCacheEntry) (bool, error) {
	reserved := false
	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		b := tx.Bucket(idempotencyBucket)
		k := idempotencyKey(entry.Key, entry.UserID)
		if existing, ok := decodeEntry(b.Get(k)); ok && !existing.Expired(s.clock()) {
			return nil
		}
		pending := *entry
		pending.StatusCode = 0
		pending.Headers = nil
		pending.ResponseBody = nil
		reserved = true
		return putJSON(b, k, &pending)
	})
	if err != nil {
		return false, fmt.Errorf("Reserve: %w", err)
	}
	return reserved, nil
}

// Complete stores the response on a pending entry reserved with the same
// request hash.
func (s *IdempotencyStore) Complete(ctx context.Context, entry *repository.IdempotencyCacheEntry) error {
	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		b := tx.Bucket(idempotencyBucket)
		k := idempotencyKey(entry.Key, entry.UserID)
		existing, ok := decodeEntry(b.Get(k))
		if !ok || !existing.Pending() || existing.RequestHash != entry.RequestHash {
			return fmt.Errorf("key %q: %w", entry.Key, domain.ErrNotFound)
		}
		done := *entry
		done.CreatedAt = existing.CreatedAt
		return putJSON(b, k, &done)
	})
	if err != nil {
		return fmt.Errorf("Complete: %w", err)
	}
	return nil
}

// Release drops a pending entry so the key can be used again.
func (s *IdempotencyStore) Release(ctx context.Context, key string, userID uuid.UUID) error {
	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		b := tx.Bucket(idempotencyBucket)
		k := idempotencyKey(key, userID)
		if existing, ok := decodeEntry(b.Get(k)); ok && existing.Pending() {
			return b.Delete(k)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Release: %w", err)
	}
	return nil
}

func decodeEntry(data []byte) (repository.IdempotencyCacheEntry, bool) {
	var e repository.IdempotencyCacheEntry
	if data == nil || json.Unmarshal(data, &e) != nil {
		return e, false
	}
	return e, true
}

func (s *IdempotencyStore) CleanExpired(ctx context.Context) (int64, error) {
	var n int64
	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		b := tx.Bucket(idempotencyBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e repository.IdempotencyCacheEntry
			if err := json.Unmarshal(v, &e); err != nil || e.Expired(s.clock()) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("CleanExpired: %w", err)
	}
	return n, nil
}

// Package boltstore is an embedded single-file store backed by bbolt. It
// offers the same user, expense and idempotency operations as the Postgres
// repositories so either can back the service.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

var (
	usersBucket       = []byte("users")
	usernamesBucket   = []byte("usernames")
	emailsBucket      = []byte("emails")
	expensesBucket    = []byte("expenses")
	idempotencyBucket = []byte("idempotency")
)

// DB owns the bbolt file. Use Users, Expenses and Idempotency for typed access.
type DB struct {
	db *bbolt.DB
}

func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("Open: %w", classify(err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, usernamesBucket, emailsBucket, expensesBucket, idempotencyBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// PingContext reports whether the file is still open and readable.
func (d *DB) PingContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return fmt.Errorf("PingContext: %w", classify(err))
	}
	return nil
}

func (d *DB) Users() *UserStore               { return &UserStore{db: d.db} }
func (d *DB) Expenses() *ExpenseStore         { return &ExpenseStore{db: d.db} }
func (d *DB) Idempotency() *IdempotencyStore { return &IdempotencyStore{db: d.db} }

func view(ctx context.Context, db *bbolt.DB, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(db.View(fn))
}

func update(ctx context.Context, db *bbolt.DB, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(db.Update(fn))
}

func classify(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) || errors.Is(err, bbolt.ErrTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return b.Put(key, data)
}

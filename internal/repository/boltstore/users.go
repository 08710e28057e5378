package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

type userRecord struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type UserStore struct {
	db *bbolt.DB
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		names := tx.Bucket(usernamesBucket)
		emails := tx.Bucket(emailsBucket)
		if names.Get([]byte(u.Username)) != nil || emails.Get([]byte(u.Email)) != nil {
			return domain.ErrUserExists
		}
		users := tx.Bucket(usersBucket)
		if users.Get(u.ID[:]) != nil {
			return domain.ErrUserExists
		}

		rec := userRecord{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt.UTC()}
		if err := putJSON(users, u.ID[:], rec); err != nil {
			return err
		}
		if err := names.Put([]byte(u.Username), u.ID[:]); err != nil {
			return err
		}
		return emails.Put([]byte(u.Email), u.ID[:])
	})
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u *domain.User
	err := view(ctx, s.db, func(tx *bbolt.Tx) error {
		var err error
		u, err = getUser(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u *domain.User
	err := view(ctx, s.db, func(tx *bbolt.Tx) error {
		raw := tx.Bucket(usernamesBucket).Get([]byte(username))
		if raw == nil {
			return domain.ErrNotFound
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return err
		}
		u, err = getUser(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetByUsername: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	users := make(map[uuid.UUID]*domain.User, len(ids))
	err := view(ctx, s.db, func(tx *bbolt.Tx) error {
		for _, id := range ids {
			u, err := getUser(tx, id)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			users[id] = u
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}
	return users, nil
}

func getUser(tx *bbolt.Tx, id uuid.UUID) (*domain.User, error) {
	data := tx.Bucket(usersBucket).Get(id[:])
	if data == nil {
		return nil, domain.ErrNotFound
	}
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &domain.User{ID: rec.ID, Username: rec.Username, Email: rec.Email, CreatedAt: rec.CreatedAt}, nil
}

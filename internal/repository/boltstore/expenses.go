package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

type splitRecord struct {
	UserID      uuid.UUID        `json:"user_id"`
	AmountMinor int64            `json:"amount_minor"`
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
}

type expenseRecord struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	TotalMinor  int64         `json:"total_minor"`
	Currency    string        `json:"currency"`
	SplitType   string        `json:"split_type"`
	Splits      []splitRecord `json:"splits"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Version     int64         `json:"version"`
}

func toRecord(e *domain.Expense) expenseRecord {
	rec := expenseRecord{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		TotalMinor:  e.Total.Minor,
		Currency:    string(e.Total.Currency),
		SplitType:   string(e.SplitType),
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
		Version:     e.Version,
	}
	for _, s := range e.Splits {
		rec.Splits = append(rec.Splits, splitRecord{UserID: s.UserID, AmountMinor: s.Amount.Minor, Percentage: s.Percentage})
	}
	return rec
}

func (rec expenseRecord) toDomain() domain.Expense {
	currency := domain.Currency(rec.Currency)
	e := domain.Expense{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Total:       domain.NewMoney(rec.TotalMinor, currency),
		SplitType:   domain.SplitType(rec.SplitType),
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Version:     rec.Version,
	}
	for _, s := range rec.Splits {
		e.Splits = append(e.Splits, domain.ResolvedSplit{
			UserID:     s.UserID,
			Amount:     domain.NewMoney(s.AmountMinor, currency),
			Percentage: s.Percentage,
		})
	}
	return e
}

type ExpenseStore struct {
	db *bbolt.DB
}

func (s *ExpenseStore) Create(ctx context.Context, e *domain.Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Version = 1

	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		if err := checkUsers(tx, e); err != nil {
			return err
		}
		return putJSON(tx.Bucket(expensesBucket), e.ID[:], toRecord(e))
	})
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (s *ExpenseStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	var e domain.Expense
	err := view(ctx, s.db, func(tx *bbolt.Tx) error {
		var err error
		e, err = getExpense(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &e, nil
}

// ListForUser scans every expense and keeps those the user created or shares
// in, newest first.
func (s *ExpenseStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Expense, error) {
	var expenses []domain.Expense
	err := view(ctx, s.db, func(tx *bbolt.Tx) error {
		return tx.Bucket(expensesBucket).ForEach(func(k, v []byte) error {
			e, err := decodeExpense(v)
			if err != nil {
				return err
			}
			if e.Involves(userID) {
				expenses = append(expenses, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}

	sort.SliceStable(expenses, func(a, b int) bool {
		if !expenses[a].CreatedAt.Equal(expenses[b].CreatedAt) {
			return expenses[a].CreatedAt.After(expenses[b].CreatedAt)
		}
		return expenses[a].ID.String() < expenses[b].ID.String()
	})
	return expenses, nil
}

// Update replaces the stored record when its version still equals e.Version.
func (s *ExpenseStore) Update(ctx context.Context, e *domain.Expense) error {
	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		current, err := getExpense(tx, e.ID)
		if err != nil {
			return err
		}
		if current.Version != e.Version {
			return domain.ErrVersionConflict
		}
		if err := checkUsers(tx, e); err != nil {
			return err
		}

		rec := toRecord(e)
		rec.Version = e.Version + 1
		return putJSON(tx.Bucket(expensesBucket), e.ID[:], rec)
	})
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	e.Version++
	return nil
}

func (s *ExpenseStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := update(ctx, s.db, func(tx *bbolt.Tx) error {
		b := tx.Bucket(expensesBucket)
		if b.Get(id[:]) == nil {
			return domain.ErrNotFound
		}
		return b.Delete(id[:])
	})
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func getExpense(tx *bbolt.Tx, id uuid.UUID) (domain.Expense, error) {
	data := tx.Bucket(expensesBucket).Get(id[:])
	if data == nil {
		return domain.Expense{}, domain.ErrNotFound
	}
	return decodeExpense(data)
}

func decodeExpense(data []byte) (domain.Expense, error) {
	var rec expenseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Expense{}, fmt.Errorf("unmarshal expense: %w", err)
	}
	e := rec.toDomain()
	if err := e.Verify(); err != nil {
		return domain.Expense{}, err
	}
	return e, nil
}

// checkUsers mirrors the foreign keys of the relational schema.
func checkUsers(tx *bbolt.Tx, e *domain.Expense) error {
	users := tx.Bucket(usersBucket)
	var missing []uuid.UUID
	if users.Get(e.CreatedBy[:]) == nil {
		missing = append(missing, e.CreatedBy)
	}
	for _, s := range e.Splits {
		if users.Get(s.UserID[:]) == nil {
			missing = append(missing, s.UserID)
		}
	}
	if len(missing) > 0 {
		return &domain.UnknownParticipantsError{IDs: missing}
	}
	return nil
}

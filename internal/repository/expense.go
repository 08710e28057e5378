package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

const expenseColumns = `id, title, description, total_minor, currency, split_type,
	created_by, version, created_at, updated_at`

type ExpenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create stores the expense and its splits in one transaction, assigning the
// id and initial version.
func (r *ExpenseRepository) Create(ctx context.Context, e *domain.Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Version = 1

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (`+expenseColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID, e.Title, e.Description, e.Total.Minor, e.Total.Currency, e.SplitType,
			e.CreatedBy, e.Version, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return mapWriteErr(err)
		}
		return insertSplits(ctx, tx, e)
	})
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id,
	)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", classify(err))
	}

	expenses := []domain.Expense{*e}
	if err := r.loadSplits(ctx, expenses); err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &expenses[0], nil
}

// ListForUser returns every expense the user created or participates in,
// newest first.
func (r *ExpenseRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		WHERE created_by = $1
		   OR id IN (SELECT expense_id FROM expense_splits WHERE user_id = $1)
		ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", classify(err))
	}
	defer rows.Close()

	var expenses []domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForUser: scan: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListForUser: rows: %w", classify(err))
	}

	if err := r.loadSplits(ctx, expenses); err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	return expenses, nil
}

// Update replaces the stored expense and its whole split set if the stored
// version still equals e.Version. On success e.Version is advanced.
func (r *ExpenseRepository) Update(ctx context.Context, e *domain.Expense) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE expenses
			SET title = $1, description = $2, total_minor = $3, currency = $4,
				split_type = $5, updated_at = $6, version = version + 1
			WHERE id = $7 AND version = $8`,
			e.Title, e.Description, e.Total.Minor, e.Total.Currency,
			e.SplitType, e.UpdatedAt, e.ID, e.Version,
		)
		if err != nil {
			return mapWriteErr(err)
		}
		if err := expectOneRow(ctx, tx, res, e.ID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_splits WHERE expense_id = $1`, e.ID); err != nil {
			return classify(err)
		}
		return insertSplits(ctx, tx, e)
	})
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	e.Version++
	return nil
}

// Delete removes the expense; its splits go with it.
func (r *ExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *ExpenseRepository) loadSplits(ctx context.Context, expenses []domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	index := make(map[uuid.UUID]int, len(expenses))
	ids := make([]uuid.UUID, len(expenses))
	for i := range expenses {
		index[expenses[i].ID] = i
		ids[i] = expenses[i].ID
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_id, user_id, amount_minor, percentage
		FROM expense_splits
		WHERE expense_id = ANY($1::uuid[])
		ORDER BY expense_id, position`,
		uuidArray(ids),
	)
	if err != nil {
		return fmt.Errorf("loadSplits: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			expenseID uuid.UUID
			s         domain.ResolvedSplit
			minor     int64
			pct       decimal.NullDecimal
		)
		if err := rows.Scan(&expenseID, &s.UserID, &minor, &pct); err != nil {
			return fmt.Errorf("loadSplits: scan: %w", err)
		}
		e := &expenses[index[expenseID]]
		s.Amount = domain.NewMoney(minor, e.Total.Currency)
		if pct.Valid {
			p := pct.Decimal
			s.Percentage = &p
		}
		e.Splits = append(e.Splits, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loadSplits: rows: %w", classify(err))
	}

	for i := range expenses {
		if err := expenses[i].Verify(); err != nil {
			return fmt.Errorf("loadSplits: %w", err)
		}
	}
	return nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, e *domain.Expense) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expense_splits (expense_id, user_id, position, amount_minor, percentage)
		VALUES ($1, $2, $3, $4, $5)`,
	)
	if err != nil {
		return fmt.Errorf("insertSplits: prepare: %w", classify(err))
	}
	defer stmt.Close()

	for i, s := range e.Splits {
		pct := decimal.NullDecimal{}
		if s.Percentage != nil {
			pct = decimal.NullDecimal{Decimal: *s.Percentage, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, e.ID, s.UserID, i, s.Amount.Minor, pct); err != nil {
			return fmt.Errorf("insertSplits: %w", mapWriteErr(err))
		}
	}
	return nil
}

// expectOneRow distinguishes a missing expense from a stale version when a
// versioned write touched nothing.
func expectOneRow(ctx context.Context, tx *sql.Tx, res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM expenses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return classify(err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrVersionConflict
}

func mapWriteErr(err error) error {
	if pqCode(err) == pqForeignKeyViolation {
		return fmt.Errorf("%w: %w", domain.ErrParticipantNotFound, err)
	}
	return classify(err)
}

func scanExpense(s scanner) (*domain.Expense, error) {
	var (
		e        domain.Expense
		minor    int64
		currency string
	)
	err := s.Scan(
		&e.ID, &e.Title, &e.Description, &minor, &currency, &e.SplitType,
		&e.CreatedBy, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Total = domain.NewMoney(minor, domain.Currency(currency))
	return &e, nil
}

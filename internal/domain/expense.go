package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SplitType string

const (
	SplitTypeEqual      SplitType = "EQUAL"
	SplitTypeExact      SplitType = "EXACT"
	SplitTypePercentage SplitType = "PERCENTAGE"
)

func (t SplitType) IsValid() bool {
	switch t {
	case SplitTypeEqual, SplitTypeExact, SplitTypePercentage:
		return true
	}
	return false
}

// ParticipantInput is one participant as supplied by the caller. Amount is
// read for EXACT splits and Percentage for PERCENTAGE splits; EQUAL ignores both.
type ParticipantInput struct {
	UserID     uuid.UUID
	Amount     *Money
	Percentage *decimal.Decimal
}

// ResolvedSplit is the amount one participant owes for one expense.
// Percentage is set only when the expense was split by percentage.
type ResolvedSplit struct {
	UserID     uuid.UUID
	Amount     Money
	Percentage *decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// PercentageOf returns the stored percentage, or the share of total rounded
// to two places when the split was not made by percentage. Derived values are
// rounded independently, so across one expense they may sum to 99.99 or 100.01.
func (s ResolvedSplit) PercentageOf(total Money) decimal.Decimal {
	if s.Percentage != nil {
		return *s.Percentage
	}
	if total.Minor == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.Amount.Minor).
		Mul(hundred).
		Div(decimal.NewFromInt(total.Minor)).
		Round(2)
}

// ExpenseFields is the caller-editable part of an expense.
type ExpenseFields struct {
	Title        string
	Description  string
	Total        Money
	SplitType    SplitType
	Participants []ParticipantInput
}

type Expense struct {
	ID          uuid.UUID
	Title       string
	Description string
	Total       Money
	SplitType   SplitType
	Splits      []ResolvedSplit
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
}

// Verify checks that the splits are in the expense currency and sum to the total.
func (e *Expense) Verify() error {
	if len(e.Splits) == 0 {
		return fmt.Errorf("Verify: expense %s: %w: no splits", e.ID, ErrCorruptRecord)
	}
	sum := NewMoney(0, e.Total.Currency)
	for _, s := range e.Splits {
		if s.Amount.Currency != e.Total.Currency {
			return fmt.Errorf("Verify: expense %s: %w: split currency %s", e.ID, ErrCorruptRecord, s.Amount.Currency)
		}
		next, err := sum.Add(s.Amount)
		if err != nil {
			return fmt.Errorf("Verify: expense %s: %w: %w", e.ID, ErrCorruptRecord, err)
		}
		sum = next
	}
	if sum != e.Total {
		return fmt.Errorf("Verify: expense %s: %w: splits sum to %s, total %s", e.ID, ErrCorruptRecord, sum, e.Total)
	}
	return nil
}

// ShareOf returns the user's split amount, if they participate.
func (e *Expense) ShareOf(userID uuid.UUID) (Money, bool) {
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s.Amount, true
		}
	}
	return Money{}, false
}

// Involves reports whether the user created the expense or shares in it.
func (e *Expense) Involves(userID uuid.UUID) bool {
	if e.CreatedBy == userID {
		return true
	}
	_, ok := e.ShareOf(userID)
	return ok
}

func (e *Expense) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(e.Splits))
	for i, s := range e.Splits {
		ids[i] = s.UserID
	}
	return ids
}

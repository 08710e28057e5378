// Package ledger folds expense records into per-user balances. Every call
// recomputes from the records it is given; nothing is cached between calls.
package ledger

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

// Aggregate computes one user's balance over expenses. The creator of an
// expense is credited its full total as paid; every participant, the creator
// included, is debited its own share as owed.
func Aggregate(userID uuid.UUID, currency domain.Currency, expenses []domain.Expense) (domain.LedgerEntry, error) {
	paid := domain.NewMoney(0, currency)
	owed := domain.NewMoney(0, currency)

	for i := range expenses {
		e := &expenses[i]
		if e.Total.Currency != currency {
			return domain.LedgerEntry{}, fmt.Errorf("Aggregate: expense %s in %s: %w", e.ID, e.Total.Currency, domain.ErrCurrencyMismatch)
		}
		var err error
		if e.CreatedBy == userID {
			if paid, err = paid.Add(e.Total); err != nil {
				return domain.LedgerEntry{}, fmt.Errorf("Aggregate: paid: %w", err)
			}
		}
		if share, ok := e.ShareOf(userID); ok {
			if owed, err = owed.Add(share); err != nil {
				return domain.LedgerEntry{}, fmt.Errorf("Aggregate: owed: %w", err)
			}
		}
	}

	net, err := paid.Sub(owed)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("Aggregate: net: %w", err)
	}
	return domain.LedgerEntry{
		UserID:     userID,
		TotalOwed:  owed,
		TotalPaid:  paid,
		NetBalance: net,
	}, nil
}

// AggregateMany returns one entry per user, in the order given.
func AggregateMany(userIDs []uuid.UUID, currency domain.Currency, expenses []domain.Expense) ([]domain.LedgerEntry, error) {
	entries := make([]domain.LedgerEntry, 0, len(userIDs))
	for _, id := range userIDs {
		entry, err := Aggregate(id, currency, expenses)
		if err != nil {
			return nil, fmt.Errorf("AggregateMany: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Members lists every user that created or shares in any of the expenses,
// in first-seen order.
func Members(expenses []domain.Expense) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for i := range expenses {
		add(expenses[i].CreatedBy)
		for _, s := range expenses[i].Splits {
			add(s.UserID)
		}
	}
	return ids
}

// Statement lists the user's share of every expense they participate in,
// newest first. Creator names are filled in by the caller.
func Statement(userID uuid.UUID, expenses []domain.Expense) []domain.StatementLine {
	var lines []domain.StatementLine
	for i := range expenses {
		e := &expenses[i]
		share, ok := e.ShareOf(userID)
		if !ok {
			continue
		}
		lines = append(lines, domain.StatementLine{
			ExpenseID: e.ID,
			Title:     e.Title,
			Total:     e.Total,
			Share:     share,
			CreatedBy: e.CreatedBy,
			Date:      e.CreatedAt,
		})
	}

	sort.SliceStable(lines, func(a, b int) bool {
		return lines[a].Date.After(lines[b].Date)
	})
	return lines
}

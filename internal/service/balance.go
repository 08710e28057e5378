package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/ledger"
)

// BalanceService derives ledger views. Every call reads the store afresh and
// folds the full expense set; no balance is ever cached.
type BalanceService struct {
	expenses expenseStore
	users    userDirectory
}

func NewBalanceService(expenses expenseStore, users userDirectory) *BalanceService {
	return &BalanceService{expenses: expenses, users: users}
}

// Balance is the user's ledger entry across all of their expenses in currency.
func (s *BalanceService) Balance(ctx context.Context, userID uuid.UUID, currency domain.Currency) (domain.LedgerEntry, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("Balance: %w", err)
	}

	expenses, err := s.expensesIn(ctx, userID, currency)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("Balance: %w", err)
	}

	entry, err := ledger.Aggregate(userID, currency, expenses)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("Balance: %w", err)
	}
	entry.Username = user.Username
	return entry, nil
}

// Balances returns one entry per user, each computed over that user's own
// expenses, in the order given.
func (s *BalanceService) Balances(ctx context.Context, userIDs []uuid.UUID, currency domain.Currency) ([]domain.LedgerEntry, error) {
	entries := make([]domain.LedgerEntry, 0, len(userIDs))
	for _, id := range userIDs {
		entry, err := s.Balance(ctx, id, currency)
		if err != nil {
			return nil, fmt.Errorf("Balances: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Sheet is the balance sheet of everyone the user shares expenses with,
// computed over the user's expenses only. The user comes first, then the
// others by username.
func (s *BalanceService) Sheet(ctx context.Context, userID uuid.UUID, currency domain.Currency) ([]domain.LedgerEntry, error) {
	expenses, err := s.expensesIn(ctx, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("Sheet: %w", err)
	}

	members := ledger.Members(expenses)
	names, err := usernames(ctx, s.users, append([]uuid.UUID{userID}, members...))
	if err != nil {
		return nil, fmt.Errorf("Sheet: %w", err)
	}

	others := make([]uuid.UUID, 0, len(members))
	for _, id := range members {
		if id != userID {
			others = append(others, id)
		}
	}
	sort.SliceStable(others, func(a, b int) bool {
		return names[others[a]] < names[others[b]]
	})

	entries, err := ledger.AggregateMany(append([]uuid.UUID{userID}, others...), currency, expenses)
	if err != nil {
		return nil, fmt.Errorf("Sheet: %w", err)
	}
	for i := range entries {
		entries[i].Username = names[entries[i].UserID]
	}
	return entries, nil
}

// Statement lists the user's share of each expense they participate in,
// newest first.
func (s *BalanceService) Statement(ctx context.Context, userID uuid.UUID, currency domain.Currency) ([]domain.StatementLine, error) {
	expenses, err := s.expensesIn(ctx, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("Statement: %w", err)
	}

	lines := ledger.Statement(userID, expenses)
	creators := make([]uuid.UUID, len(lines))
	for i := range lines {
		creators[i] = lines[i].CreatedBy
	}
	names, err := usernames(ctx, s.users, creators)
	if err != nil {
		return nil, fmt.Errorf("Statement: %w", err)
	}
	for i := range lines {
		lines[i].CreatedByName = names[lines[i].CreatedBy]
	}
	return lines, nil
}

// expensesIn reads the user's expenses and keeps those in currency. Balances
// are kept per currency; nothing is converted.
func (s *BalanceService) expensesIn(ctx context.Context, userID uuid.UUID, currency domain.Currency) ([]domain.Expense, error) {
	all, err := s.expenses.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.Total.Currency == currency {
			out = append(out, e)
		}
	}
	return out, nil
}

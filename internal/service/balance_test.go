package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

func TestBalanceService_Balance(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	balances := NewBalanceService(f.store, f.users)

	_, err := f.svc.Create(ctx, f.alice.ID, equalFields(4000, f.alice, f.bob))
	require.NoError(t, err)

	alice, err := balances.Balance(ctx, f.alice.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "40.00", alice.TotalPaid.String())
	assert.Equal(t, "20.00", alice.TotalOwed.String())
	assert.Equal(t, "20.00", alice.NetBalance.String())

	bob, err := balances.Balance(ctx, f.bob.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, "-20.00", bob.NetBalance.String())

	_, err = balances.Balance(ctx, uuid.New(), domain.CurrencyUSD)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBalanceService_ReadsYourWrites(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	balances := NewBalanceService(f.store, f.users)

	first, err := f.svc.Create(ctx, f.alice.ID, equalFields(4000, f.alice, f.bob))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.bob.ID, equalFields(1000, f.alice, f.bob))
	require.NoError(t, err)

	bob, err := balances.Balance(ctx, f.bob.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, "-15.00", bob.NetBalance.String())

	require.NoError(t, f.svc.Delete(ctx, f.alice.ID, first.ID, 0))

	bob, err = balances.Balance(ctx, f.bob.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, "5.00", bob.NetBalance.String())

	alice, err := balances.Balance(ctx, f.alice.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, "0.00", alice.TotalPaid.String())
	assert.Equal(t, "5.00", alice.TotalOwed.String())
}

func TestBalanceService_CurrenciesKeptApart(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	balances := NewBalanceService(f.store, f.users)

	_, err := f.svc.Create(ctx, f.alice.ID, equalFields(4000, f.alice, f.bob))
	require.NoError(t, err)
	eur := equalFields(1000, f.alice, f.bob)
	eur.Total = domain.NewMoney(1000, domain.CurrencyEUR)
	_, err = f.svc.Create(ctx, f.alice.ID, eur)
	require.NoError(t, err)

	inEUR, err := balances.Balance(ctx, f.alice.ID, domain.CurrencyEUR)
	require.NoError(t, err)
	assert.Equal(t, "10.00", inEUR.TotalPaid.String())
	assert.Equal(t, domain.CurrencyEUR, inEUR.TotalPaid.Currency)
}

func TestBalanceService_Sheet(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	balances := NewBalanceService(f.store, f.users)

	_, err := f.svc.Create(ctx, f.carol.ID, equalFields(3000, f.alice, f.bob, f.carol))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.bob.ID, equalFields(1000, f.bob, f.carol))
	require.NoError(t, err)

	sheet, err := balances.Sheet(ctx, f.alice.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	require.Len(t, sheet, 3)

	assert.Equal(t, "alice", sheet[0].Username)
	assert.Equal(t, "-10.00", sheet[0].NetBalance.String())
	assert.Equal(t, "bob", sheet[1].Username)
	assert.Equal(t, "-10.00", sheet[1].NetBalance.String(), "only alice's expenses count")
	assert.Equal(t, "carol", sheet[2].Username)
	assert.Equal(t, "20.00", sheet[2].NetBalance.String())
}

func TestBalanceService_SheetWithNoExpenses(t *testing.T) {
	f := newExpenseFixture()
	balances := NewBalanceService(f.store, f.users)

	sheet, err := balances.Sheet(context.Background(), f.alice.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	require.Len(t, sheet, 1)
	assert.Equal(t, "alice", sheet[0].Username)
	assert.True(t, sheet[0].NetBalance.IsZero())
}

func TestBalanceService_Statement(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	balances := NewBalanceService(f.store, f.users)

	_, err := f.svc.Create(ctx, f.bob.ID, equalFields(3000, f.alice, f.bob, f.carol))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.alice.ID, equalFields(500, f.bob))
	require.NoError(t, err)

	lines, err := balances.Statement(ctx, f.alice.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	require.Len(t, lines, 1, "alice created the second expense but has no share in it")
	assert.Equal(t, "bob", lines[0].CreatedByName)
	assert.Equal(t, "10.00", lines[0].Share.String())
}

func TestBalanceService_Balances(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	balances := NewBalanceService(f.store, f.users)

	_, err := f.svc.Create(ctx, f.alice.ID, equalFields(4000, f.alice, f.bob))
	require.NoError(t, err)

	entries, err := balances.Balances(ctx, []uuid.UUID{f.bob.ID, f.alice.ID}, domain.CurrencyUSD)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, "alice", entries[1].Username)
}

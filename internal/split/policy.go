// Package split turns an expense total and a split policy into exact
// per-participant amounts whose sum equals the total.
package split

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

var hundred = decimal.NewFromInt(100)

const percentPlaces = 2

// Resolve allocates total across participants according to splitType. Output
// order matches input order. Resolve is pure: identical inputs always produce
// identical output.
func Resolve(total domain.Money, splitType domain.SplitType, participants []domain.ParticipantInput) ([]domain.ResolvedSplit, error) {
	if len(participants) == 0 {
		return nil, &domain.SplitError{Kind: domain.ErrEmptyParticipants}
	}
	if !total.IsPositive() {
		return nil, &domain.SplitError{Kind: domain.ErrNonPositiveTotal, Actual: total.String()}
	}

	seen := make(map[uuid.UUID]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p.UserID]; dup {
			return nil, &domain.SplitError{Kind: domain.ErrDuplicateParticipant, UserID: p.UserID}
		}
		seen[p.UserID] = struct{}{}
	}

	switch splitType {
	case domain.SplitTypeEqual:
		return resolveEqual(total, participants), nil
	case domain.SplitTypeExact:
		return resolveExact(total, participants)
	case domain.SplitTypePercentage:
		return resolvePercentage(total, participants)
	default:
		return nil, &domain.SplitError{Kind: domain.ErrUnknownSplitType, Actual: string(splitType)}
	}
}

// resolveEqual gives every participant total/n and hands the leftover minor
// units to the first participants in input order.
func resolveEqual(total domain.Money, participants []domain.ParticipantInput) []domain.ResolvedSplit {
	n := int64(len(participants))
	base := total.Minor / n
	remainder := total.Minor % n

	splits := make([]domain.ResolvedSplit, len(participants))
	for i, p := range participants {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		splits[i] = domain.ResolvedSplit{
			UserID: p.UserID,
			Amount: domain.NewMoney(amount, total.Currency),
		}
	}
	return splits
}

// resolveExact takes the amounts as given. No single share may exceed the
// total, and the shares are summed with overflow checks.
func resolveExact(total domain.Money, participants []domain.ParticipantInput) ([]domain.ResolvedSplit, error) {
	splits := make([]domain.ResolvedSplit, len(participants))
	for i, p := range participants {
		if p.Amount == nil {
			return nil, &domain.SplitError{Kind: domain.ErrMissingShare, UserID: p.UserID}
		}
		if p.Amount.Currency != total.Currency {
			return nil, &domain.SplitError{
				Kind:     domain.ErrShareCurrencyMismatch,
				UserID:   p.UserID,
				Expected: string(total.Currency),
				Actual:   string(p.Amount.Currency),
			}
		}
		if p.Amount.IsNegative() {
			return nil, &domain.SplitError{Kind: domain.ErrNegativeShare, UserID: p.UserID, Actual: p.Amount.String()}
		}
		if p.Amount.Minor > total.Minor {
			return nil, &domain.SplitError{
				Kind:     domain.ErrShareExceedsTotal,
				UserID:   p.UserID,
				Expected: total.String(),
				Actual:   p.Amount.String(),
			}
		}
		splits[i] = domain.ResolvedSplit{UserID: p.UserID, Amount: *p.Amount}
	}

	sum := domain.NewMoney(0, total.Currency)
	for _, s := range splits {
		next, err := sum.Add(s.Amount)
		if err != nil || next.Minor > total.Minor {
			return nil, sumMismatch(total, splits)
		}
		sum = next
	}
	if sum != total {
		return nil, sumMismatch(total, splits)
	}
	return splits, nil
}

// sumMismatch reports the true sum of the shares, which may not fit in int64.
func sumMismatch(total domain.Money, splits []domain.ResolvedSplit) error {
	actual := decimal.Zero
	for _, s := range splits {
		actual = actual.Add(s.Amount.Decimal())
	}
	return &domain.SplitError{
		Kind:     domain.ErrSumMismatch,
		Expected: total.String(),
		Actual:   actual.StringFixed(2),
	}
}

// resolvePercentage floors every exact share and distributes the leftover
// minor units one at a time by largest fractional remainder. Ties go to the
// participant listed first. Percentages carry at most two decimal places.
func resolvePercentage(total domain.Money, participants []domain.ParticipantInput) ([]domain.ResolvedSplit, error) {
	pctSum := decimal.Zero
	for _, p := range participants {
		if p.Percentage == nil {
			return nil, &domain.SplitError{Kind: domain.ErrMissingShare, UserID: p.UserID}
		}
		// Out-of-bounds values are not echoed back.
		if !domain.Bounded(*p.Percentage) {
			return nil, &domain.SplitError{Kind: domain.ErrPercentageOutOfRange, UserID: p.UserID}
		}
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
			return nil, &domain.SplitError{Kind: domain.ErrPercentageOutOfRange, UserID: p.UserID, Actual: p.Percentage.String()}
		}
		if !p.Percentage.Equal(p.Percentage.Truncate(percentPlaces)) {
			return nil, &domain.SplitError{Kind: domain.ErrPercentagePrecision, UserID: p.UserID, Actual: p.Percentage.String()}
		}
		pctSum = pctSum.Add(*p.Percentage)
	}
	if !pctSum.Equal(hundred) {
		return nil, &domain.SplitError{
			Kind:     domain.ErrPercentageSumInvalid,
			Expected: "100",
			Actual:   pctSum.String(),
		}
	}

	totalDec := decimal.NewFromInt(total.Minor)
	splits := make([]domain.ResolvedSplit, len(participants))
	fractions := make([]decimal.Decimal, len(participants))
	allocated := int64(0)

	for i, p := range participants {
		exact := totalDec.Mul(*p.Percentage).Shift(-2)
		floor := exact.Floor()
		fractions[i] = exact.Sub(floor)

		pct := *p.Percentage
		splits[i] = domain.ResolvedSplit{
			UserID:     p.UserID,
			Amount:     domain.NewMoney(floor.IntPart(), total.Currency),
			Percentage: &pct,
		}
		allocated += floor.IntPart()
	}

	order := make([]int, len(participants))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fractions[order[a]].GreaterThan(fractions[order[b]])
	})

	for k := int64(0); k < total.Minor-allocated; k++ {
		idx := order[k]
		splits[idx].Amount.Minor++
	}
	return splits, nil
}

package split

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

// NewRecord builds an expense from caller fields. The returned record has no ID
// yet; the store assigns one on create.
func NewRecord(fields domain.ExpenseFields, creator uuid.UUID, now time.Time) (*domain.Expense, error) {
	if creator == uuid.Nil {
		return nil, fmt.Errorf("NewRecord: %w: creator is required", domain.ErrInvalidRequest)
	}
	splits, err := resolveFields(fields)
	if err != nil {
		return nil, fmt.Errorf("NewRecord: %w", err)
	}

	now = now.UTC()
	return &domain.Expense{
		Title:       strings.TrimSpace(fields.Title),
		Description: fields.Description,
		Total:       fields.Total,
		SplitType:   fields.SplitType,
		Splits:      splits,
		CreatedBy:   creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ReviseRecord replaces every editable field of existing and re-resolves the
// whole split set. existing is not modified. Identity, creator, creation time
// and version carry over; the store bumps the version on write.
func ReviseRecord(existing *domain.Expense, fields domain.ExpenseFields, now time.Time) (*domain.Expense, error) {
	splits, err := resolveFields(fields)
	if err != nil {
		return nil, fmt.Errorf("ReviseRecord: %w", err)
	}

	return &domain.Expense{
		ID:          existing.ID,
		Title:       strings.TrimSpace(fields.Title),
		Description: fields.Description,
		Total:       fields.Total,
		SplitType:   fields.SplitType,
		Splits:      splits,
		CreatedBy:   existing.CreatedBy,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   now.UTC(),
		Version:     existing.Version,
	}, nil
}

func resolveFields(fields domain.ExpenseFields) ([]domain.ResolvedSplit, error) {
	if strings.TrimSpace(fields.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidRequest)
	}
	if !fields.Total.Currency.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCurrency, fields.Total.Currency)
	}
	return Resolve(fields.Total, fields.SplitType, fields.Participants)
}

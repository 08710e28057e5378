// Package events publishes expense lifecycle notifications for downstream
// consumers. Publishing is best effort: the expense write has already
// committed by the time an event is sent.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

type Type string

const (
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
)

// ExpenseEvent tells consumers which balances need recomputing. It carries
// every affected user rather than balances themselves.
type ExpenseEvent struct {
	Type          Type        `json:"type"`
	ExpenseID     uuid.UUID   `json:"expense_id"`
	Version       int64       `json:"version"`
	ActorID       uuid.UUID   `json:"actor_id"`
	AffectedUsers []uuid.UUID `json:"affected_users"`
	Total         string      `json:"total"`
	Currency      string      `json:"currency"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// NewExpenseEvent builds an event for e. For updates, previous carries the
// record before the change so users removed from the split are notified too.
func NewExpenseEvent(t Type, actor uuid.UUID, e *domain.Expense, previous *domain.Expense, now time.Time) ExpenseEvent {
	seen := make(map[uuid.UUID]struct{})
	var affected []uuid.UUID
	collect := func(x *domain.Expense) {
		if x == nil {
			return
		}
		for _, id := range append([]uuid.UUID{x.CreatedBy}, x.ParticipantIDs()...) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			affected = append(affected, id)
		}
	}
	collect(e)
	collect(previous)

	return ExpenseEvent{
		Type:          t,
		ExpenseID:     e.ID,
		Version:       e.Version,
		ActorID:       actor,
		AffectedUsers: affected,
		Total:         e.Total.String(),
		Currency:      string(e.Total.Currency),
		OccurredAt:    now.UTC(),
	}
}

func (e ExpenseEvent) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("ToJSON: %w", err)
	}
	return data, nil
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var e ExpenseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("ExpenseEventFromJSON: %w", err)
	}
	return &e, nil
}

type Publisher interface {
	Publish(ctx context.Context, event ExpenseEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ExpenseEvent) error { return nil }
func (NoopPublisher) Close() error                                { return nil }

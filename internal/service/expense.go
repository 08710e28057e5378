package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/events"
	"github.com/josh-kwaku/splitledger/internal/logging"
	"github.com/josh-kwaku/splitledger/internal/metrics"
	"github.com/josh-kwaku/splitledger/internal/split"
)

// ExpenseService applies expense writes for an authenticated actor. An actor
// may read, revise or delete an expense only when they created it or share
// in it; anything else is reported as not found.
type ExpenseService struct {
	expenses expenseStore
	users    userDirectory
	events   eventPublisher
	now      func() time.Time
}

func NewExpenseService(expenses expenseStore, users userDirectory, publisher eventPublisher) *ExpenseService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ExpenseService{
		expenses: expenses,
		users:    users,
		events:   publisher,
		now:      time.Now,
	}
}

func (s *ExpenseService) Create(ctx context.Context, actor uuid.UUID, fields domain.ExpenseFields) (*domain.Expense, error) {
	log := logging.FromContext(ctx)

	e, err := split.NewRecord(fields, actor, s.now())
	if err != nil {
		metrics.RecordSplitRejection(err)
		return nil, fmt.Errorf("Create: %w", err)
	}

	if err := s.checkParticipants(ctx, actor, e); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	metrics.RecordExpenseWrite("create", e.SplitType)
	log.Info("expense created",
		"expense_id", e.ID,
		"split_type", e.SplitType,
		"total", e.Total.String(),
		"participants", len(e.Splits),
	)

	s.publish(ctx, events.NewExpenseEvent(events.ExpenseCreated, actor, e, nil, s.now()))
	return e, nil
}

func (s *ExpenseService) Get(ctx context.Context, actor, id uuid.UUID) (*domain.Expense, error) {
	e, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return e, nil
}

// List returns every expense the actor created or shares in, newest first.
func (s *ExpenseService) List(ctx context.Context, actor uuid.UUID) ([]domain.Expense, error) {
	expenses, err := s.expenses.ListForUser(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return expenses, nil
}

// Update re-resolves the whole split set from fields. expectedVersion, when
// non-zero, must match the stored version.
func (s *ExpenseService) Update(ctx context.Context, actor, id uuid.UUID, fields domain.ExpenseFields, expectedVersion int64) (*domain.Expense, error) {
	log := logging.FromContext(ctx)

	existing, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if expectedVersion != 0 && expectedVersion != existing.Version {
		return nil, fmt.Errorf("Update: have version %d, stored %d: %w", expectedVersion, existing.Version, domain.ErrVersionConflict)
	}

	revised, err := split.ReviseRecord(existing, fields, s.now())
	if err != nil {
		metrics.RecordSplitRejection(err)
		return nil, fmt.Errorf("Update: %w", err)
	}

	if err := s.checkParticipants(ctx, revised.CreatedBy, revised); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	if err := s.expenses.Update(ctx, revised); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	metrics.RecordExpenseWrite("update", revised.SplitType)
	log.Info("expense updated",
		"expense_id", revised.ID,
		"version", revised.Version,
		"split_type", revised.SplitType,
		"total", revised.Total.String(),
	)

	s.publish(ctx, events.NewExpenseEvent(events.ExpenseUpdated, actor, revised, existing, s.now()))
	return revised, nil
}

// Delete removes the expense. expectedVersion, when non-zero, must match the
// stored version.
func (s *ExpenseService) Delete(ctx context.Context, actor, id uuid.UUID, expectedVersion int64) error {
	log := logging.FromContext(ctx)

	existing, err := s.visible(ctx, actor, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if expectedVersion != 0 && expectedVersion != existing.Version {
		return fmt.Errorf("Delete: have version %d, stored %d: %w", expectedVersion, existing.Version, domain.ErrVersionConflict)
	}

	if err := s.expenses.Delete(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	metrics.RecordExpenseWrite("delete", existing.SplitType)
	log.Info("expense deleted", "expense_id", id)

	s.publish(ctx, events.NewExpenseEvent(events.ExpenseDeleted, actor, existing, nil, s.now()))
	return nil
}

// Usernames resolves display names for the users on the given expenses.
func (s *ExpenseService) Usernames(ctx context.Context, expenses []domain.Expense) (map[uuid.UUID]string, error) {
	var ids []uuid.UUID
	for i := range expenses {
		ids = append(ids, expenses[i].CreatedBy)
		ids = append(ids, expenses[i].ParticipantIDs()...)
	}
	return usernames(ctx, s.users, ids)
}

func (s *ExpenseService) visible(ctx context.Context, actor, id uuid.UUID) (*domain.Expense, error) {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Involves(actor) {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (s *ExpenseService) checkParticipants(ctx context.Context, creator uuid.UUID, e *domain.Expense) error {
	ids := uniqueIDs(append([]uuid.UUID{creator}, e.ParticipantIDs()...))
	found, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("checkParticipants: %w", err)
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &domain.UnknownParticipantsError{IDs: missing}
	}
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, ev events.ExpenseEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		metrics.RecordPublishFailure()
		logging.FromContext(ctx).Warn("failed to publish expense event",
			"error", err,
			"type", ev.Type,
			"expense_id", ev.ExpenseID,
		)
	}
}

func usernames(ctx context.Context, users userDirectory, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	found, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("usernames: %w", err)
	}
	for id, u := range found {
		names[id] = u.Username
	}
	return names, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

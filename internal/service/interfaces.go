package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/events"
)

type expenseStore interface {
	Create(ctx context.Context, e *domain.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Expense, error)
	Update(ctx context.Context, e *domain.Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event events.ExpenseEvent) error
}

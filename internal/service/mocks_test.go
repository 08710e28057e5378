package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/events"
)

type mockExpenseStore struct {
	mu       sync.Mutex
	expenses map[uuid.UUID]domain.Expense
	order    []uuid.UUID
	err      error
}

func newMockExpenseStore() *mockExpenseStore {
	return &mockExpenseStore{expenses: make(map[uuid.UUID]domain.Expense)}
}

func (m *mockExpenseStore) Create(_ context.Context, e *domain.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Version = 1
	m.expenses[e.ID] = *e
	m.order = append([]uuid.UUID{e.ID}, m.order...)
	return nil
}

func (m *mockExpenseStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.expenses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (m *mockExpenseStore) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Expense
	for _, id := range m.order {
		e, ok := m.expenses[id]
		if ok && e.Involves(userID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExpenseStore) Update(_ context.Context, e *domain.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	current, ok := m.expenses[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != e.Version {
		return domain.ErrVersionConflict
	}
	e.Version++
	m.expenses[e.ID] = *e
	return nil
}

func (m *mockExpenseStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.expenses[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

type mockUserDirectory struct {
	users map[uuid.UUID]*domain.User
	err   error
}

func newMockUserDirectory(users ...*domain.User) *mockUserDirectory {
	m := &mockUserDirectory{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserDirectory) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *mockUserDirectory) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[uuid.UUID]*domain.User)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *mockUserDirectory) Create(_ context.Context, u *domain.User) error {
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	m.users[u.ID] = u
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []events.ExpenseEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, ev events.ExpenseEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockPublisher) types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}

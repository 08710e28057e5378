package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/logging"
)

type userCreator interface {
	Create(ctx context.Context, u *domain.User) error
}

// UserService provisions directory entries for expense participants.
// Credentials live with the external auth provider, not here.
type UserService struct {
	users userCreator
}

func NewUserService(users userCreator) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Register(ctx context.Context, username, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, fmt.Errorf("Register: %w: username is required", domain.ErrInvalidRequest)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("Register: %w: invalid email", domain.ErrInvalidRequest)
	}

	u := &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	logging.FromContext(ctx).Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/logging"
)

type userDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UserHandler serves directory entries. Users are provisioned with splitctl,
// so the API is read-only.
type UserHandler struct {
	users userDirectory
}

func NewUserHandler(users userDirectory) *UserHandler {
	return &UserHandler{users: users}
}

type userDTO struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	h.respondUser(w, r, userID)
}

// GetByID serves /users/{id}. Only the caller's own entry is visible.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	h.respondUser(w, r, userID)
}

func (h *UserHandler) respondUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load user", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, userDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

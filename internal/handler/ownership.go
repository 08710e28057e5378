package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/auth"
)

// caller returns the authenticated user id put on the context by the auth
// middleware.
func caller(r *http.Request) (uuid.UUID, *AppError) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrMissingToken
	}
	return id, nil
}

// pathID parses the {id} segment. A malformed id reads as not found.
func pathID(r *http.Request) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

// ownerFromPath is for per-user routes. Callers may only address themselves;
// any other user id answers as not found.
func ownerFromPath(r *http.Request) (uuid.UUID, *AppError) {
	me, appErr := caller(r)
	if appErr != nil {
		return uuid.Nil, appErr
	}
	id, appErr := pathID(r)
	if appErr != nil {
		return uuid.Nil, appErr
	}
	if id != me {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

func expenseFromPath(r *http.Request) (actor, expenseID uuid.UUID, appErr *AppError) {
	if actor, appErr = caller(r); appErr != nil {
		return uuid.Nil, uuid.Nil, appErr
	}
	if expenseID, appErr = pathID(r); appErr != nil {
		return uuid.Nil, uuid.Nil, appErr
	}
	return actor, expenseID, nil
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondCSV writes body as an attachment named filename.
func RespondCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write csv response", "error", err)
	}
}

var splitErrors = map[error]*AppError{
	domain.ErrEmptyParticipants:     ErrSplitEmptyParticipants,
	domain.ErrNonPositiveTotal:      ErrSplitNonPositiveTotal,
	domain.ErrSumMismatch:           ErrSplitSumMismatch,
	domain.ErrPercentageSumInvalid:  ErrPercentageSumInvalid,
	domain.ErrDuplicateParticipant:  ErrSplitDuplicate,
	domain.ErrMissingShare:          ErrSplitMissingShare,
	domain.ErrNegativeShare:         ErrSplitNegativeShare,
	domain.ErrPercentageOutOfRange:  ErrPercentageOutOfRange,
	domain.ErrPercentagePrecision:   ErrPercentagePrecision,
	domain.ErrShareExceedsTotal:     ErrSplitShareExceedsTotal,
	domain.ErrUnknownSplitType:      ErrUnknownSplitType,
	domain.ErrShareCurrencyMismatch: ErrSplitCurrencyMismatch,
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var (
		splitErr   *domain.SplitError
		unknownErr *domain.UnknownParticipantsError
	)
	if errors.As(err, &splitErr) {
		appErr, ok := splitErrors[splitErr.Kind]
		if !ok {
			appErr = ErrValidationFailed
		}
		RespondAppError(w, appErr, splitErr.Details())
		return
	}
	if errors.As(err, &unknownErr) {
		ids := make([]string, len(unknownErr.IDs))
		for i, id := range unknownErr.IDs {
			ids[i] = id.String()
		}
		RespondAppError(w, ErrParticipantNotFound, map[string][]string{"user_ids": ids})
		return
	}

	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrParticipantNotFound):
		appErr = ErrParticipantNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		appErr = ErrStoreUnavailable
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	case errors.Is(err, domain.ErrUserExists):
		appErr = ErrUserExists
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrAmountOverflow):
		appErr = ErrAmountOutOfRange
	case errors.Is(err, domain.ErrCurrencyMismatch):
		appErr = ErrCurrencyMismatch
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}

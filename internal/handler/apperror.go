package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrStoreUnavailable = &AppError{http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is temporarily unavailable, please retry"}

	ErrInvalidCurrency     = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidAmount       = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be a positive value with at most two decimal places"}
	ErrAmountOutOfRange    = &AppError{http.StatusUnprocessableEntity, "AMOUNT_OUT_OF_RANGE", "Amounts are too large to total"}
	ErrCurrencyMismatch    = &AppError{http.StatusUnprocessableEntity, "CURRENCY_MISMATCH", "Currency mismatch"}
	ErrParticipantNotFound = &AppError{http.StatusUnprocessableEntity, "PARTICIPANT_NOT_FOUND", "One or more participants do not exist"}
	ErrUserExists          = &AppError{http.StatusConflict, "USER_ALREADY_EXISTS", "Username or email already registered"}
	ErrVersionConflict     = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrIdempotencyConflict = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrRequestInProgress   = &AppError{http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is still being processed, retry shortly"}

	ErrSplitEmptyParticipants = &AppError{http.StatusUnprocessableEntity, "SPLIT_EMPTY_PARTICIPANTS", "At least one participant is required"}
	ErrSplitNonPositiveTotal  = &AppError{http.StatusUnprocessableEntity, "SPLIT_NON_POSITIVE_TOTAL", "Total must be greater than zero"}
	ErrSplitSumMismatch       = &AppError{http.StatusUnprocessableEntity, "SPLIT_SUM_MISMATCH", "Split amounts do not add up to the total"}
	ErrPercentageSumInvalid   = &AppError{http.StatusUnprocessableEntity, "PERCENTAGE_SUM_INVALID", "Percentages must add up to exactly 100"}
	ErrSplitDuplicate         = &AppError{http.StatusUnprocessableEntity, "SPLIT_DUPLICATE_PARTICIPANT", "A participant is listed more than once"}
	ErrSplitMissingShare      = &AppError{http.StatusUnprocessableEntity, "SPLIT_MISSING_SHARE", "A participant share is missing"}
	ErrSplitNegativeShare     = &AppError{http.StatusUnprocessableEntity, "SPLIT_NEGATIVE_SHARE", "A participant share is negative"}
	ErrPercentageOutOfRange   = &AppError{http.StatusUnprocessableEntity, "PERCENTAGE_OUT_OF_RANGE", "Percentages must be between 0 and 100"}
	ErrPercentagePrecision    = &AppError{http.StatusUnprocessableEntity, "PERCENTAGE_PRECISION", "Percentages may have at most two decimal places"}
	ErrSplitShareExceedsTotal = &AppError{http.StatusUnprocessableEntity, "SPLIT_SHARE_EXCEEDS_TOTAL", "A participant share is larger than the total"}
	ErrUnknownSplitType       = &AppError{http.StatusUnprocessableEntity, "UNKNOWN_SPLIT_TYPE", "Split type must be EQUAL, EXACT, or PERCENTAGE"}
	ErrSplitCurrencyMismatch  = &AppError{http.StatusUnprocessableEntity, "SPLIT_CURRENCY_MISMATCH", "A participant share is in a different currency than the total"}
)

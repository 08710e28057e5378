package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrVersionConflict     = errors.New("optimistic lock conflict")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserExists          = errors.New("user already exists")
	ErrCorruptRecord       = errors.New("stored expense violates split invariant")
	ErrAmountOverflow      = errors.New("amount out of range")
)

// Split rejection kinds. A *SplitError always unwraps to one of these.
var (
	ErrEmptyParticipants     = errors.New("at least one participant is required")
	ErrNonPositiveTotal      = errors.New("total must be greater than zero")
	ErrSumMismatch           = errors.New("split amounts do not sum to the total")
	ErrPercentageSumInvalid  = errors.New("percentages must sum to exactly 100")
	ErrDuplicateParticipant  = errors.New("participant listed more than once")
	ErrMissingShare          = errors.New("participant share is missing")
	ErrNegativeShare         = errors.New("participant share must not be negative")
	ErrPercentageOutOfRange  = errors.New("percentage must be between 0 and 100")
	ErrPercentagePrecision   = errors.New("percentage must have at most two decimal places")
	ErrShareExceedsTotal     = errors.New("participant share exceeds the total")
	ErrUnknownSplitType      = errors.New("unknown split type")
	ErrShareCurrencyMismatch = errors.New("participant share currency differs from total")
)

// SplitError reports why a split could not be resolved. Expected and Actual
// carry the numeric mismatch when there is one.
type SplitError struct {
	Kind     error
	UserID   uuid.UUID
	Expected string
	Actual   string
}

func (e *SplitError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.UserID != uuid.Nil {
		fmt.Fprintf(&b, " (user %s)", e.UserID)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, ": expected %s, got %s", e.Expected, e.Actual)
	}
	return b.String()
}

func (e *SplitError) Unwrap() error { return e.Kind }

// Reason is a stable snake_case label for the rejection kind.
func (e *SplitError) Reason() string {
	switch e.Kind {
	case ErrEmptyParticipants:
		return "empty_participants"
	case ErrNonPositiveTotal:
		return "non_positive_total"
	case ErrSumMismatch:
		return "sum_mismatch"
	case ErrPercentageSumInvalid:
		return "percentage_sum_invalid"
	case ErrDuplicateParticipant:
		return "duplicate_participant"
	case ErrMissingShare:
		return "missing_share"
	case ErrNegativeShare:
		return "negative_share"
	case ErrPercentageOutOfRange:
		return "percentage_out_of_range"
	case ErrPercentagePrecision:
		return "percentage_precision"
	case ErrShareExceedsTotal:
		return "share_exceeds_total"
	case ErrUnknownSplitType:
		return "unknown_split_type"
	case ErrShareCurrencyMismatch:
		return "currency_mismatch"
	default:
		return "unknown"
	}
}

// Details returns the fields worth echoing back to a caller.
func (e *SplitError) Details() map[string]string {
	d := map[string]string{"reason": e.Reason()}
	if e.UserID != uuid.Nil {
		d["user_id"] = e.UserID.String()
	}
	if e.Expected != "" {
		d["expected"] = e.Expected
	}
	if e.Actual != "" {
		d["actual"] = e.Actual
	}
	exp, err1 := decimal.NewFromString(e.Expected)
	act, err2 := decimal.NewFromString(e.Actual)
	if err1 == nil && err2 == nil {
		d["difference"] = act.Sub(exp).StringFixed(2)
	}
	return d
}

// UnknownParticipantsError lists participant ids that do not resolve to a user.
type UnknownParticipantsError struct {
	IDs []uuid.UUID
}

func (e *UnknownParticipantsError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: %s", ErrParticipantNotFound, strings.Join(ids, ", "))
}

func (e *UnknownParticipantsError) Unwrap() error { return ErrParticipantNotFound }

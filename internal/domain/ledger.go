package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is a derived balance view for one user. It is recomputed from
// the full expense set on every request and never stored.
type LedgerEntry struct {
	UserID     uuid.UUID
	Username   string
	TotalOwed  Money
	TotalPaid  Money
	NetBalance Money
}

// StatementLine is one expense as seen by a single participant.
type StatementLine struct {
	ExpenseID     uuid.UUID
	Title         string
	Total         Money
	Share         Money
	CreatedBy     uuid.UUID
	CreatedByName string
	Date          time.Time
}

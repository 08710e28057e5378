package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

func SeedTestUser(t *testing.T, db *sql.DB, username, email string) *domain.User {
	t.Helper()

	u := &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := db.Exec(
		`INSERT INTO users (id, username, email, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.Email, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", username, err)
	}
	return u
}

func CountSplits(t *testing.T, db *sql.DB, expenseID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM expense_splits WHERE expense_id = $1`, expenseID).Scan(&count)
	if err != nil {
		t.Fatalf("count splits for expense %s: %v", expenseID, err)
	}
	return count
}

// Package export renders ledger views as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

var (
	balanceHeader   = []string{"user", "total_owed", "total_paid", "net_balance"}
	statementHeader = []string{"expense", "amount", "your_share", "created_by", "date"}
)

const dateLayout = "2006-01-02"

// BalancesCSV writes one row per entry in the order given. The user column is
// the username, or the user id when no username is known.
func BalancesCSV(entries []domain.LedgerEntry) ([]byte, error) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		user := e.Username
		if user == "" {
			user = e.UserID.String()
		}
		rows = append(rows, []string{
			user,
			e.TotalOwed.String(),
			e.TotalPaid.String(),
			e.NetBalance.String(),
		})
	}
	out, err := write(balanceHeader, rows)
	if err != nil {
		return nil, fmt.Errorf("BalancesCSV: %w", err)
	}
	return out, nil
}

// StatementCSV writes one row per statement line in the order given.
func StatementCSV(lines []domain.StatementLine) ([]byte, error) {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		creator := l.CreatedByName
		if creator == "" {
			creator = l.CreatedBy.String()
		}
		rows = append(rows, []string{
			l.Title,
			l.Total.String(),
			l.Share.String(),
			creator,
			l.Date.UTC().Format(dateLayout),
		})
	}
	out, err := write(statementHeader, rows)
	if err != nil {
		return nil, fmt.Errorf("StatementCSV: %w", err)
	}
	return out, nil
}

func write(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

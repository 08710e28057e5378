package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/export"
	"github.com/josh-kwaku/splitledger/internal/logging"
)

type balanceService interface {
	Balance(ctx context.Context, userID uuid.UUID, currency domain.Currency) (domain.LedgerEntry, error)
	Sheet(ctx context.Context, userID uuid.UUID, currency domain.Currency) ([]domain.LedgerEntry, error)
	Statement(ctx context.Context, userID uuid.UUID, currency domain.Currency) ([]domain.StatementLine, error)
}

type BalanceHandler struct {
	balances        balanceService
	defaultCurrency domain.Currency
}

func NewBalanceHandler(balances balanceService, defaultCurrency domain.Currency) *BalanceHandler {
	return &BalanceHandler{balances: balances, defaultCurrency: defaultCurrency}
}

type balanceDTO struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	TotalOwed  string    `json:"total_owed"`
	TotalPaid  string    `json:"total_paid"`
	NetBalance string    `json:"net_balance"`
	Currency   string    `json:"currency"`
}

func toBalanceDTO(e domain.LedgerEntry) balanceDTO {
	return balanceDTO{
		UserID:     e.UserID,
		Username:   e.Username,
		TotalOwed:  e.TotalOwed.String(),
		TotalPaid:  e.TotalPaid.String(),
		NetBalance: e.NetBalance.String(),
		Currency:   string(e.NetBalance.Currency),
	}
}

// Mine serves the current user's balance.
func (h *BalanceHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	h.respondBalance(w, r, userID)
}

// ForUser serves /users/{id}/balance; only the user themself may read it.
func (h *BalanceHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID, appErr := ownerFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	h.respondBalance(w, r, userID)
}

func (h *BalanceHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	currency, appErr := h.currency(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	entries, err := h.balances.Sheet(r.Context(), userID, currency)
	if err != nil {
		log.Error("failed to build balance sheet", "error", err)
		RespondDomainError(w, err)
		return
	}

	body, err := export.BalancesCSV(entries)
	if err != nil {
		log.Error("failed to render balance csv", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}
	RespondCSV(w, "balances.csv", body)
}

func (h *BalanceHandler) StatementCSV(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	currency, appErr := h.currency(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	lines, err := h.balances.Statement(r.Context(), userID, currency)
	if err != nil {
		log.Error("failed to build statement", "error", err)
		RespondDomainError(w, err)
		return
	}

	body, err := export.StatementCSV(lines)
	if err != nil {
		log.Error("failed to render statement csv", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}
	RespondCSV(w, "statement.csv", body)
}

func (h *BalanceHandler) respondBalance(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	currency, appErr := h.currency(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	entry, err := h.balances.Balance(r.Context(), userID, currency)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to compute balance", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toBalanceDTO(entry))
}

func (h *BalanceHandler) currency(r *http.Request) (domain.Currency, *AppError) {
	raw := r.URL.Query().Get("currency")
	if raw == "" {
		return h.defaultCurrency, nil
	}
	c := domain.Currency(strings.ToUpper(raw))
	if !c.IsValid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

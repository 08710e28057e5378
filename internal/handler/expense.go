package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/splitledger/internal/domain"
	"github.com/josh-kwaku/splitledger/internal/logging"
)

type expenseService interface {
	Create(ctx context.Context, actor uuid.UUID, fields domain.ExpenseFields) (*domain.Expense, error)
	Get(ctx context.Context, actor, id uuid.UUID) (*domain.Expense, error)
	List(ctx context.Context, actor uuid.UUID) ([]domain.Expense, error)
	Update(ctx context.Context, actor, id uuid.UUID, fields domain.ExpenseFields, expectedVersion int64) (*domain.Expense, error)
	Delete(ctx context.Context, actor, id uuid.UUID, expectedVersion int64) error
	Usernames(ctx context.Context, expenses []domain.Expense) (map[uuid.UUID]string, error)
}

type ExpenseHandler struct {
	expenses        expenseService
	defaultCurrency domain.Currency
}

func NewExpenseHandler(expenses expenseService, defaultCurrency domain.Currency) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, defaultCurrency: defaultCurrency}
}

// Amounts and percentages decode from either JSON strings or bare numbers
// without passing through float64.
type participantRequest struct {
	UserID     string           `json:"user_id"`
	Amount     *decimal.Decimal `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage"`
}

type expenseRequest struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Amount       *decimal.Decimal     `json:"amount"`
	Currency     string               `json:"currency"`
	SplitType    string               `json:"split_type"`
	Participants []participantRequest `json:"participants"`
	Version      int64                `json:"version"`
}

const amountMessage = "must be in range with at most two decimal places"

// toFields checks the request shape and converts it. Split rules are left to
// the split engine so they surface as split errors, not field errors.
func (r expenseRequest) toFields(defaultCurrency domain.Currency) (domain.ExpenseFields, []FieldError) {
	var errs []FieldError

	if strings.TrimSpace(r.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "required"})
	}

	currency := defaultCurrency
	if r.Currency != "" {
		currency = domain.Currency(strings.ToUpper(r.Currency))
	}
	if !currency.IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be USD, EUR, GBP, or NGN"})
	}

	var total domain.Money
	if r.Amount == nil {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	} else if m, err := domain.MoneyFromDecimal(*r.Amount, currency); err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: amountMessage})
	} else {
		total = m
	}

	if r.SplitType == "" {
		errs = append(errs, FieldError{Field: "split_type", Message: "required"})
	}

	participants := make([]domain.ParticipantInput, 0, len(r.Participants))
	for i, p := range r.Participants {
		field := fmt.Sprintf("participants[%d]", i)

		id, err := uuid.Parse(p.UserID)
		if err != nil {
			errs = append(errs, FieldError{Field: field + ".user_id", Message: "must be a valid UUID"})
			continue
		}
		if p.Percentage != nil && !domain.Bounded(*p.Percentage) {
			errs = append(errs, FieldError{Field: field + ".percentage", Message: "out of range"})
			continue
		}
		in := domain.ParticipantInput{UserID: id, Percentage: p.Percentage}
		if p.Amount != nil {
			m, err := domain.MoneyFromDecimal(*p.Amount, currency)
			if err != nil {
				errs = append(errs, FieldError{Field: field + ".amount", Message: amountMessage})
				continue
			}
			in.Amount = &m
		}
		participants = append(participants, in)
	}

	return domain.ExpenseFields{
		Title:        r.Title,
		Description:  r.Description,
		Total:        total,
		SplitType:    domain.SplitType(strings.ToUpper(r.SplitType)),
		Participants: participants,
	}, errs
}

type splitDTO struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	Amount     string    `json:"amount"`
	Percentage string    `json:"percentage"`
}

type expenseDTO struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	SplitType         string     `json:"split_type"`
	Splits            []splitDTO `json:"splits"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	CreatedByUsername string     `json:"created_by_username"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int64      `json:"version"`
}

func toExpenseDTO(e *domain.Expense, names map[uuid.UUID]string) expenseDTO {
	splits := make([]splitDTO, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = splitDTO{
			UserID:     s.UserID,
			Username:   names[s.UserID],
			Amount:     s.Amount.String(),
			Percentage: s.PercentageOf(e.Total).StringFixed(2),
		}
	}
	return expenseDTO{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		Amount:            e.Total.String(),
		Currency:          string(e.Total.Currency),
		SplitType:         string(e.SplitType),
		Splits:            splits,
		CreatedBy:         e.CreatedBy,
		CreatedByUsername: names[e.CreatedBy],
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
		Version:           e.Version,
	}
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	fields, errs := req.toFields(h.defaultCurrency)
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	e, err := h.expenses.Create(r.Context(), userID, fields)
	if err != nil {
		log.Warn("expense creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/expenses/%s", e.ID))
	h.respondExpense(w, r, http.StatusCreated, e)
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	expenses, err := h.expenses.List(r.Context(), userID)
	if err != nil {
		log.Error("failed to list expenses", "error", err)
		RespondDomainError(w, err)
		return
	}

	names, err := h.expenses.Usernames(r.Context(), expenses)
	if err != nil {
		log.Error("failed to resolve usernames", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]expenseDTO, len(expenses))
	for i := range expenses {
		dtos[i] = toExpenseDTO(&expenses[i], names)
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := expenseFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	e, err := h.expenses.Get(r.Context(), userID, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	h.respondExpense(w, r, http.StatusOK, e)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, id, appErr := expenseFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	version, ok := expectedVersion(r)
	if !ok {
		RespondValidationError(w, []FieldError{{Field: "If-Match", Message: "must be an expense version"}})
		return
	}
	if version == 0 {
		version = req.Version
	}

	fields, errs := req.toFields(h.defaultCurrency)
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	e, err := h.expenses.Update(r.Context(), userID, id, fields, version)
	if err != nil {
		log.Warn("expense update failed", "error", err, "expense_id", id)
		RespondDomainError(w, err)
		return
	}

	h.respondExpense(w, r, http.StatusOK, e)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, id, appErr := expenseFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	version, ok := expectedVersion(r)
	if !ok {
		RespondValidationError(w, []FieldError{{Field: "If-Match", Message: "must be an expense version"}})
		return
	}

	if err := h.expenses.Delete(r.Context(), userID, id, version); err != nil {
		log.Warn("expense deletion failed", "error", err, "expense_id", id)
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) respondExpense(w http.ResponseWriter, r *http.Request, status int, e *domain.Expense) {
	names, err := h.expenses.Usernames(r.Context(), []domain.Expense{*e})
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to resolve usernames", "error", err)
		names = map[uuid.UUID]string{}
	}
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(e.Version, 10)))
	RespondSuccess(w, status, toExpenseDTO(e, names))
}

// expectedVersion reads If-Match, accepting both "3" and 3. An absent header
// yields 0, meaning no version check.
func expectedVersion(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		return 0, true
	}
	raw = strings.TrimPrefix(raw, "W/")
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = unq
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

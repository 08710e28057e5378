package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/splitledger/internal/auth"
	"github.com/josh-kwaku/splitledger/internal/domain"
)

type mockExpenseService struct {
	expense *domain.Expense
	err     error

	gotFields  domain.ExpenseFields
	gotVersion int64
}

func (m *mockExpenseService) Create(_ context.Context, actor uuid.UUID, fields domain.ExpenseFields) (*domain.Expense, error) {
	m.gotFields = fields
	if m.err != nil {
		return nil, m.err
	}
	return m.expense, nil
}

func (m *mockExpenseService) Get(_ context.Context, _, _ uuid.UUID) (*domain.Expense, error) {
	return m.expense, m.err
}

func (m *mockExpenseService) List(_ context.Context, _ uuid.UUID) ([]domain.Expense, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.expense == nil {
		return nil, nil
	}
	return []domain.Expense{*m.expense}, nil
}

func (m *mockExpenseService) Update(_ context.Context, _, _ uuid.UUID, fields domain.ExpenseFields, version int64) (*domain.Expense, error) {
	m.gotFields = fields
	m.gotVersion = version
	if m.err != nil {
		return nil, m.err
	}
	return m.expense, nil
}

func (m *mockExpenseService) Delete(_ context.Context, _, _ uuid.UUID, version int64) error {
	m.gotVersion = version
	return m.err
}

func (m *mockExpenseService) Usernames(_ context.Context, expenses []domain.Expense) (map[uuid.UUID]string, error) {
	names := map[uuid.UUID]string{}
	for _, e := range expenses {
		names[e.CreatedBy] = "creator"
		for _, s := range e.Splits {
			names[s.UserID] = "member"
		}
	}
	return names, nil
}

var (
	testActor = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testPeer  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func sampleExpense() *domain.Expense {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Expense{
		ID:        uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		Title:     "Taxi",
		Total:     domain.NewMoney(1000, domain.CurrencyUSD),
		SplitType: domain.SplitTypeEqual,
		Splits: []domain.ResolvedSplit{
			{UserID: testActor, Amount: domain.NewMoney(334, domain.CurrencyUSD)},
			{UserID: testPeer, Amount: domain.NewMoney(666, domain.CurrencyUSD)},
		},
		CreatedBy: testActor,
		CreatedAt: at,
		UpdatedAt: at,
		Version:   2,
	}
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), auth.Claims{UserID: testActor, Username: "alice"}))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (APIResponse, json.RawMessage) {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	return APIResponse{Success: raw.Success, Error: raw.Error}, raw.Data
}

func TestExpenseHandler_Create(t *testing.T) {
	validBody := `{"title":"Taxi","amount":"10.00","split_type":"EQUAL","participants":[{"user_id":"` + testActor.String() + `"},{"user_id":"` + testPeer.String() + `"}]}`

	tests := []struct {
		name       string
		body       string
		svcErr     error
		noAuth     bool
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid equal split",
			body:       validBody,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "numeric amount accepted",
			body:       `{"title":"Taxi","amount":10,"split_type":"equal","participants":[{"user_id":"` + testPeer.String() + `"}]}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing token",
			body:       validBody,
			noAuth:     true,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "MISSING_TOKEN",
		},
		{
			name:       "invalid JSON",
			body:       "{",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing title and amount",
			body:       `{"split_type":"EQUAL","participants":[]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "three decimal places",
			body:       `{"title":"Taxi","amount":"10.001","split_type":"EQUAL","participants":[{"user_id":"` + testPeer.String() + `"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "amount with extreme exponent",
			body:       `{"title":"Taxi","amount":1e-99999999,"split_type":"EQUAL","participants":[{"user_id":"` + testPeer.String() + `"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "percentage with extreme exponent",
			body:       `{"title":"Taxi","amount":"10","split_type":"PERCENTAGE","participants":[{"user_id":"` + testPeer.String() + `","percentage":"1e-9999999"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad participant id",
			body:       `{"title":"Taxi","amount":"10","split_type":"EQUAL","participants":[{"user_id":"nope"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown currency",
			body:       `{"title":"Taxi","amount":"10","currency":"JPY","split_type":"EQUAL","participants":[{"user_id":"` + testPeer.String() + `"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "sum mismatch",
			body:       validBody,
			svcErr:     &domain.SplitError{Kind: domain.ErrSumMismatch, Expected: "10.00", Actual: "9.99"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SPLIT_SUM_MISMATCH",
		},
		{
			name:       "percentages off",
			body:       validBody,
			svcErr:     &domain.SplitError{Kind: domain.ErrPercentageSumInvalid, Expected: "100", Actual: "99.9"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "PERCENTAGE_SUM_INVALID",
		},
		{
			name:       "share above total",
			body:       validBody,
			svcErr:     &domain.SplitError{Kind: domain.ErrShareExceedsTotal, Expected: "10.00", Actual: "10.01"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SPLIT_SHARE_EXCEEDS_TOTAL",
		},
		{
			name:       "percentage precision",
			body:       validBody,
			svcErr:     &domain.SplitError{Kind: domain.ErrPercentagePrecision, Actual: "25.125"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "PERCENTAGE_PRECISION",
		},
		{
			name:       "unknown participant",
			body:       validBody,
			svcErr:     &domain.UnknownParticipantsError{IDs: []uuid.UUID{testPeer}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "PARTICIPANT_NOT_FOUND",
		},
		{
			name:       "store down",
			body:       validBody,
			svcErr:     domain.ErrStoreUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "STORE_UNAVAILABLE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockExpenseService{expense: sampleExpense(), err: tc.svcErr}
			h := NewExpenseHandler(svc, domain.CurrencyUSD)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(tc.body))
			if !tc.noAuth {
				req = authed(req)
			}
			rr := httptest.NewRecorder()

			h.Create(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			resp, _ := decodeEnvelope(t, rr)
			if tc.wantCode == "" {
				assert.True(t, resp.Success)
				assert.Equal(t, "/api/v1/expenses/"+sampleExpense().ID.String(), rr.Header().Get("Location"))
			} else {
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestExpenseHandler_CreateConvertsRequest(t *testing.T) {
	svc := &mockExpenseService{expense: sampleExpense()}
	h := NewExpenseHandler(svc, domain.CurrencyEUR)

	body := `{"title":"Hotel","amount":"300.5","split_type":"PERCENTAGE","participants":[
		{"user_id":"` + testActor.String() + `","percentage":"33.33"},
		{"user_id":"` + testPeer.String() + `","percentage":66.67}]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(body)))
	rr := httptest.NewRecorder()

	h.Create(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	got := svc.gotFields
	assert.Equal(t, int64(30050), got.Total.Minor)
	assert.Equal(t, domain.CurrencyEUR, got.Total.Currency, "falls back to the default currency")
	assert.Equal(t, domain.SplitTypePercentage, got.SplitType)
	require.Len(t, got.Participants, 2)
	assert.True(t, got.Participants[0].Percentage.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, got.Participants[1].Percentage.Equal(decimal.RequireFromString("66.67")))
}

func TestExpenseHandler_SplitErrorDetails(t *testing.T) {
	svc := &mockExpenseService{err: &domain.SplitError{Kind: domain.ErrSumMismatch, Expected: "10.00", Actual: "9.99"}}
	h := NewExpenseHandler(svc, domain.CurrencyUSD)

	body := `{"title":"Taxi","amount":"10","split_type":"EXACT","participants":[{"user_id":"` + testPeer.String() + `","amount":"9.99"}]}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/expenses", strings.NewReader(body)))
	rr := httptest.NewRecorder()

	h.Create(rr, req)

	var resp struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "SPLIT_SUM_MISMATCH", resp.Error.Code)
	assert.Equal(t, "10.00", resp.Error.Details["expected"])
	assert.Equal(t, "9.99", resp.Error.Details["actual"])
	assert.Equal(t, "-0.01", resp.Error.Details["difference"])
}

func TestExpenseHandler_GetView(t *testing.T) {
	svc := &mockExpenseService{expense: sampleExpense()}
	h := NewExpenseHandler(svc, domain.CurrencyUSD)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/expenses/x", nil))
	req.SetPathValue("id", sampleExpense().ID.String())
	rr := httptest.NewRecorder()

	h.Get(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"2"`, rr.Header().Get("ETag"))

	_, data := decodeEnvelope(t, rr)
	var view expenseDTO
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, "10.00", view.Amount)
	assert.Equal(t, "creator", view.CreatedByUsername)
	require.Len(t, view.Splits, 2)
	assert.Equal(t, "3.34", view.Splits[0].Amount)
	assert.Equal(t, "33.40", view.Splits[0].Percentage)
	assert.Equal(t, "66.60", view.Splits[1].Percentage)
}

func TestExpenseHandler_GetNotFound(t *testing.T) {
	tests := []struct {
		name   string
		pathID string
		err    error
	}{
		{name: "malformed id", pathID: "not-a-uuid"},
		{name: "invisible expense", pathID: uuid.NewString(), err: domain.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewExpenseHandler(&mockExpenseService{err: tc.err}, domain.CurrencyUSD)
			req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/expenses/x", nil))
			req.SetPathValue("id", tc.pathID)
			rr := httptest.NewRecorder()

			h.Get(rr, req)
			assert.Equal(t, http.StatusNotFound, rr.Code)
		})
	}
}

func TestExpenseHandler_UpdateVersion(t *testing.T) {
	body := `{"title":"Taxi","amount":"10","split_type":"EQUAL","participants":[{"user_id":"` + testPeer.String() + `"}],"version":5}`

	tests := []struct {
		name        string
		ifMatch     string
		svcErr      error
		wantStatus  int
		wantVersion int64
	}{
		{name: "quoted etag", ifMatch: `"2"`, wantStatus: http.StatusOK, wantVersion: 2},
		{name: "bare number", ifMatch: "3", wantStatus: http.StatusOK, wantVersion: 3},
		{name: "body version when header absent", wantStatus: http.StatusOK, wantVersion: 5},
		{name: "garbage header", ifMatch: "abc", wantStatus: http.StatusBadRequest},
		{name: "stale version", ifMatch: "1", svcErr: domain.ErrVersionConflict, wantStatus: http.StatusConflict, wantVersion: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockExpenseService{expense: sampleExpense(), err: tc.svcErr}
			h := NewExpenseHandler(svc, domain.CurrencyUSD)

			req := authed(httptest.NewRequest(http.MethodPut, "/api/v1/expenses/x", strings.NewReader(body)))
			req.SetPathValue("id", sampleExpense().ID.String())
			if tc.ifMatch != "" {
				req.Header.Set("If-Match", tc.ifMatch)
			}
			rr := httptest.NewRecorder()

			h.Update(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, tc.wantVersion, svc.gotVersion)
		})
	}
}

func TestExpenseHandler_Delete(t *testing.T) {
	svc := &mockExpenseService{}
	h := NewExpenseHandler(svc, domain.CurrencyUSD)

	req := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/expenses/x", nil))
	req.SetPathValue("id", uuid.NewString())
	req.Header.Set("If-Match", `W/"4"`)
	rr := httptest.NewRecorder()

	h.Delete(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, int64(4), svc.gotVersion)
	assert.Empty(t, rr.Body.Bytes())
}

func TestExpenseHandler_List(t *testing.T) {
	svc := &mockExpenseService{expense: sampleExpense()}
	h := NewExpenseHandler(svc, domain.CurrencyUSD)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil))
	rr := httptest.NewRecorder()

	h.List(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, data := decodeEnvelope(t, rr)
	var views []expenseDTO
	require.NoError(t, json.Unmarshal(data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Taxi", views[0].Title)
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokerroom/internal/config"
	"pokerroom/internal/models/modeldto"
	serviceErrors "pokerroom/internal/service/processor/v1/errors"
	storageErrors "pokerroom/internal/storage/v1/errors"
)

// fakeProcessor stubs the intermediary service with per-test behaviour.
type fakeProcessor struct {
	addNewUser       func(ctx context.Context, user modeldto.User) (string, error)
	loginUser        func(ctx context.Context, credentials modeldto.User) (string, error)
	getAccount       func(ctx context.Context, userID string) (*modeldto.Account, error)
	getHands         func(ctx context.Context, userID string) ([]modeldto.Hand, error)
	addNewDeposit    func(ctx context.Context, userID string, deposit modeldto.NewDeposit) error
	addNewWithdrawal func(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) error
	convertPoints    func(ctx context.Context, userID string, currencySerial int64) error
	addNewHand       func(ctx context.Context, userID, handSerial string) error
}

func (f *fakeProcessor) GetUserID(accessToken string) (string, error) {
	return "user1", nil
}

func (f *fakeProcessor) AddNewUser(ctx context.Context, user modeldto.User) (string, error) {
	if f.addNewUser != nil {
		return f.addNewUser(ctx, user)
	}
	return "token", nil
}

func (f *fakeProcessor) LoginUser(ctx context.Context, credentials modeldto.User) (string, error) {
	if f.loginUser != nil {
		return f.loginUser(ctx, credentials)
	}
	return "token", nil
}

func (f *fakeProcessor) GetAccount(ctx context.Context, userID string) (*modeldto.Account, error) {
	if f.getAccount != nil {
		return f.getAccount(ctx, userID)
	}
	return &modeldto.Account{Serial: 1, Name: "alice"}, nil
}

func (f *fakeProcessor) GetBalances(ctx context.Context, userID string) ([]modeldto.Balance, error) {
	return nil, nil
}

func (f *fakeProcessor) GetDeposits(ctx context.Context, userID string) ([]modeldto.Deposit, error) {
	return nil, nil
}

func (f *fakeProcessor) GetWithdrawals(ctx context.Context, userID string) ([]modeldto.Withdrawal, error) {
	return nil, nil
}

func (f *fakeProcessor) GetHands(ctx context.Context, userID string) ([]modeldto.Hand, error) {
	if f.getHands != nil {
		return f.getHands(ctx, userID)
	}
	return nil, nil
}

func (f *fakeProcessor) AddNewDeposit(ctx context.Context, userID string, deposit modeldto.NewDeposit) error {
	if f.addNewDeposit != nil {
		return f.addNewDeposit(ctx, userID, deposit)
	}
	return nil
}

func (f *fakeProcessor) AddNewWithdrawal(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) error {
	if f.addNewWithdrawal != nil {
		return f.addNewWithdrawal(ctx, userID, withdrawal)
	}
	return nil
}

func (f *fakeProcessor) ConvertPoints(ctx context.Context, userID string, currencySerial int64) error {
	if f.convertPoints != nil {
		return f.convertPoints(ctx, userID, currencySerial)
	}
	return nil
}

func (f *fakeProcessor) AddNewHand(ctx context.Context, userID, handSerial string) error {
	if f.addNewHand != nil {
		return f.addNewHand(ctx, userID, handSerial)
	}
	return nil
}

func newTestHandler(t *testing.T, service *fakeProcessor) *Handler {
	log := zerolog.Nop()
	h, err := InitHandlers(service, &config.ServerConfig{}, &log)
	require.NoError(t, err)
	return h
}

func authorize(r *http.Request) *http.Request {
	r.Header.Set("Authorization", "Bearer some-token")
	return r
}

func TestHandleRegister(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		body           string
		serviceErr     error
		expectedStatus int
	}{
		{"successful registration", "application/json", `{"login": "alice", "password": "pass"}`, nil, http.StatusOK},
		{"duplicate login", "application/json", `{"login": "alice", "password": "pass"}`, &storageErrors.AlreadyExistsError{ID: "alice"}, http.StatusConflict},
		{"empty credentials", "application/json", `{"login": "", "password": ""}`, nil, http.StatusBadRequest},
		{"wrong content type", "text/plain", `{"login": "alice", "password": "pass"}`, nil, http.StatusBadRequest},
		{"storage timeout", "application/json", `{"login": "alice", "password": "pass"}`, &storageErrors.ContextTimeoutExceededError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeProcessor{
				addNewUser: func(ctx context.Context, user modeldto.User) (string, error) {
					if tt.serviceErr != nil {
						return "", tt.serviceErr
					}
					return "token", nil
				},
			})
			r := httptest.NewRequest(http.MethodPost, "/api/user/register", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			h.HandleRegister()(w, r)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "Bearer token", w.Header().Get("Authorization"))
			}
		})
	}
}

func TestHandleLoginUnknownUser(t *testing.T) {
	h := newTestHandler(t, &fakeProcessor{
		loginUser: func(ctx context.Context, credentials modeldto.User) (string, error) {
			return "", &storageErrors.NotFoundError{}
		},
	})
	r := httptest.NewRequest(http.MethodPost, "/api/user/login", strings.NewReader(`{"login": "alice", "password": "wrong"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleLogin()(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleAccountPage(t *testing.T) {
	h := newTestHandler(t, &fakeProcessor{
		getAccount: func(ctx context.Context, userID string) (*modeldto.Account, error) {
			return &modeldto.Account{
				Serial: 7,
				Name:   "alice",
				Email:  "alice@example.com",
				Balances: []modeldto.Balance{
					{Currency: modeldto.Currency{Serial: 1, Symbol: "m฿", Name: "mBTC"}, Amount: decimal.RequireFromString("1.2345"), Points: decimal.Zero},
				},
			}, nil
		},
	})
	r := authorize(httptest.NewRequest(http.MethodGet, "/account", nil))
	w := httptest.NewRecorder()
	h.HandleAccountPage()(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "alice@example.com")
	assert.Contains(t, body, "123.45")
	assert.Contains(t, body, "1.2345")
}

func TestHandleAccountPageUnknownUser(t *testing.T) {
	h := newTestHandler(t, &fakeProcessor{
		getAccount: func(ctx context.Context, userID string) (*modeldto.Account, error) {
			return nil, &storageErrors.NotFoundError{}
		},
	})
	r := authorize(httptest.NewRequest(http.MethodGet, "/account", nil))
	w := httptest.NewRecorder()
	h.HandleAccountPage()(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleNewDeposit(t *testing.T) {
	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
	}{
		{"accepted", nil, http.StatusOK},
		{"illegal reference", &serviceErrors.ServiceIllegalReference{Msg: "illegal"}, http.StatusUnprocessableEntity},
		{"illegal amount", &serviceErrors.ServiceIllegalAmount{Msg: "illegal"}, http.StatusUnprocessableEntity},
		{"unknown currency", &storageErrors.ForeignKeyError{ID: "99"}, http.StatusUnprocessableEntity},
		{"duplicate reference", &storageErrors.AlreadyExistsError{ID: "79927398713"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeProcessor{
				addNewDeposit: func(ctx context.Context, userID string, deposit modeldto.NewDeposit) error {
					return tt.serviceErr
				},
			})
			r := authorize(httptest.NewRequest(http.MethodPost, "/api/user/deposits", strings.NewReader(`{"reference": "79927398713", "amount": "10", "currency": 1}`)))
			r.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.HandleNewDeposit()(w, r)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandleNewWithdrawal(t *testing.T) {
	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
	}{
		{"accepted", nil, http.StatusOK},
		{"illegal amount", &serviceErrors.ServiceIllegalAmount{Msg: "illegal"}, http.StatusUnprocessableEntity},
		{"not enough funds", &serviceErrors.ServiceNotEnoughFunds{Msg: "insufficient"}, http.StatusPaymentRequired},
		{"overdraft caught by storage", &storageErrors.NotEnoughFundsError{ID: "user1"}, http.StatusPaymentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeProcessor{
				addNewWithdrawal: func(ctx context.Context, userID string, withdrawal modeldto.NewWithdrawal) error {
					return tt.serviceErr
				},
			})
			r := authorize(httptest.NewRequest(http.MethodPost, "/api/user/balance/withdraw", strings.NewReader(`{"amount": "3", "currency": 1, "dest": "addr"}`)))
			r.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.HandleNewWithdrawal()(w, r)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandleConvertPointsInvalidCurrency(t *testing.T) {
	h := newTestHandler(t, &fakeProcessor{})
	r := authorize(httptest.NewRequest(http.MethodPost, "/api/user/balance/convert?currency=gold", nil))
	w := httptest.NewRecorder()
	h.HandleConvertPoints()(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleNewHand(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
	}{
		{"accepted", "1234", nil, http.StatusAccepted},
		{"illegal serial", "not-a-serial", &serviceErrors.ServiceIllegalHandSerial{Msg: "illegal"}, http.StatusUnprocessableEntity},
		{"caller already linked", "1234", &storageErrors.AlreadyExistsError{ID: "1234"}, http.StatusOK},
		{"unknown user", "1234", &storageErrors.ForeignKeyError{ID: "1234"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeProcessor{
				addNewHand: func(ctx context.Context, userID, handSerial string) error {
					return tt.serviceErr
				},
			})
			r := authorize(httptest.NewRequest(http.MethodPost, "/api/user/hands", strings.NewReader(tt.body)))
			r.Header.Set("Content-Type", "text/plain")
			w := httptest.NewRecorder()
			h.HandleNewHand()(w, r)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHandleGetHands(t *testing.T) {
	h := newTestHandler(t, &fakeProcessor{
		getHands: func(ctx context.Context, userID string) ([]modeldto.Hand, error) {
			return []modeldto.Hand{{Serial: 1234, Status: "FINISHED", CreatedAt: "2024-05-01T10:00:00Z"}}, nil
		},
	})
	r := authorize(httptest.NewRequest(http.MethodGet, "/api/user/hands", nil))
	w := httptest.NewRecorder()
	h.HandleGetHands()(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "1234")
}

func TestHandleGetHandsEmpty(t *testing.T) {
	h := newTestHandler(t, &fakeProcessor{})
	r := authorize(httptest.NewRequest(http.MethodGet, "/api/user/hands", nil))
	w := httptest.NewRecorder()
	h.HandleGetHands()(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

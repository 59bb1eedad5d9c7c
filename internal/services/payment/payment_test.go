package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aslanbekov/device-registry/internal/models"
	"github.com/aslanbekov/device-registry/internal/paymentprovider"
)

type ReceiptRepoMock struct{ mock.Mock }

func (m *ReceiptRepoMock) ConfirmPayment(ctx context.Context, receipt models.Receipt, activeTill time.Time) error {
	args := m.Called(ctx, receipt, activeTill)
	return args.Error(0)
}

func (m *ReceiptRepoMock) ListReceiptsByUser(ctx context.Context, userUID string) ([]*models.Receipt, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Receipt), args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) GetUser(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type PlanRepoMock struct{ mock.Mock }

func (m *PlanRepoMock) GetPlan(ctx context.Context, id int) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) InitializeTransaction(ctx context.Context, email, reference, currency string, amount int64) (*paymentprovider.InitializeResult, error) {
	args := m.Called(ctx, email, reference, currency, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.InitializeResult), args.Error(1)
}

func (m *GatewayMock) VerifyTransaction(ctx context.Context, reference string) (*paymentprovider.VerifyResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.VerifyResult), args.Error(1)
}

type SessionStoreMock struct {
	mock.Mock
	session *models.PaymentSession
}

func (m *SessionStoreMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	if m.session != nil && args.Bool(0) {
		*result.(*models.PaymentSession) = *m.session
	}
	return args.Bool(0), args.Error(1)
}

func (m *SessionStoreMock) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *SessionStoreMock) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestService(receipts *ReceiptRepoMock, users *UserRepoMock, plans *PlanRepoMock,
	gateway *GatewayMock, sessions *SessionStoreMock, now time.Time) *Service {
	svc := New(receipts, users, plans, gateway, sessions, nil, newNoopLogger(), 15*time.Minute)
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_Initialize(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	receipts := new(ReceiptRepoMock)
	users := new(UserRepoMock)
	plans := new(PlanRepoMock)
	gateway := new(GatewayMock)
	sessions := new(SessionStoreMock)

	users.On("GetUser", mock.Anything, "uid-1").
		Return(&models.User{UID: "uid-1", Email: "alice@example.com"}, nil).Once()
	plans.On("GetPlan", mock.Anything, 2).
		Return(&models.Plan{ID: 2, Name: "Standard", MaxDevices: 10, Price: 9.99}, nil).Once()
	// 9.99 * 3 месяца в минорных единицах
	gateway.On("InitializeTransaction", mock.Anything, "alice@example.com", mock.Anything, "NGN", int64(2997)).
		Return(&paymentprovider.InitializeResult{
			AuthorizationURL: "https://checkout.paystack.com/abc",
			Reference:        "ref-1",
		}, nil).Once()
	sessions.On("Set", mock.Anything, mock.MatchedBy(func(v any) bool {
		session, ok := v.(models.PaymentSession)
		return ok && session.UserUID == "uid-1" && session.PlanID == 2 &&
			session.Months == 3 && session.Amount == 2997
	}), 15*time.Minute).Return(nil).Once()

	svc := newTestService(receipts, users, plans, gateway, sessions, now)
	result, err := svc.Initialize(context.Background(), "uid-1", models.DummyPayment{PlanID: 2, Months: 3})

	assert.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", result.AuthorizationURL)
	assert.NotEmpty(t, result.Reference)
	users.AssertExpectations(t)
	plans.AssertExpectations(t)
	gateway.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestService_Verify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := models.PaymentSession{
		UserUID:   "uid-1",
		PlanID:    2,
		Months:    3,
		Amount:    2997,
		Reference: "ref-1",
	}

	tests := []struct {
		name           string
		setupMocks     func(r *ReceiptRepoMock, u *UserRepoMock, g *GatewayMock, s *SessionStoreMock)
		wantErr        error
		wantErrMsg     string
		wantActiveTill time.Time
	}{
		{
			name: "success extends from now for expired subscription",
			setupMocks: func(r *ReceiptRepoMock, u *UserRepoMock, g *GatewayMock, s *SessionStoreMock) {
				s.session = &session
				s.On("Get", "payment:ref-1", mock.Anything).Return(true, nil).Once()
				g.On("VerifyTransaction", mock.Anything, "ref-1").
					Return(&paymentprovider.VerifyResult{Status: "success", Amount: 2997}, nil).Once()
				expired := now.AddDate(0, -1, 0)
				u.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1", SubActiveTill: &expired}, nil).Once()
				r.On("ConfirmPayment", mock.Anything, mock.MatchedBy(func(rc models.Receipt) bool {
					return rc.Reference == "ref-1" && rc.Status == "completed" && rc.Amount == 2997
				}), now.AddDate(0, 3, 0)).Return(nil).Once()
				s.On("Invalidate", "payment:ref-1").Return(nil).Once()
			},
			wantActiveTill: now.AddDate(0, 3, 0),
		},
		{
			name: "success extends from current expiry for active subscription",
			setupMocks: func(r *ReceiptRepoMock, u *UserRepoMock, g *GatewayMock, s *SessionStoreMock) {
				s.session = &session
				s.On("Get", "payment:ref-1", mock.Anything).Return(true, nil).Once()
				g.On("VerifyTransaction", mock.Anything, "ref-1").
					Return(&paymentprovider.VerifyResult{Status: "success", Amount: 2997}, nil).Once()
				till := now.AddDate(0, 1, 0)
				u.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1", SubActive: true, SubActiveTill: &till}, nil).Once()
				r.On("ConfirmPayment", mock.Anything, mock.Anything, till.AddDate(0, 3, 0)).
					Return(nil).Once()
				s.On("Invalidate", "payment:ref-1").Return(nil).Once()
			},
			wantActiveTill: now.AddDate(0, 4, 0),
		},
		{
			name: "unknown session",
			setupMocks: func(r *ReceiptRepoMock, u *UserRepoMock, g *GatewayMock, s *SessionStoreMock) {
				s.On("Get", "payment:ref-1", mock.Anything).Return(false, nil).Once()
			},
			wantErr: models.ErrPaymentSessionNotFound,
		},
		{
			name: "gateway declined",
			setupMocks: func(r *ReceiptRepoMock, u *UserRepoMock, g *GatewayMock, s *SessionStoreMock) {
				s.session = &session
				s.On("Get", "payment:ref-1", mock.Anything).Return(true, nil).Once()
				g.On("VerifyTransaction", mock.Anything, "ref-1").
					Return(&paymentprovider.VerifyResult{
						Status:          "failed",
						GatewayResponse: "Declined",
					}, nil).Once()
			},
			wantErrMsg: "payment failed",
		},
		{
			name: "amount mismatch",
			setupMocks: func(r *ReceiptRepoMock, u *UserRepoMock, g *GatewayMock, s *SessionStoreMock) {
				s.session = &session
				s.On("Get", "payment:ref-1", mock.Anything).Return(true, nil).Once()
				g.On("VerifyTransaction", mock.Anything, "ref-1").
					Return(&paymentprovider.VerifyResult{Status: "success", Amount: 100}, nil).Once()
			},
			wantErrMsg: "payment amount mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipts := new(ReceiptRepoMock)
			users := new(UserRepoMock)
			plans := new(PlanRepoMock)
			gateway := new(GatewayMock)
			sessions := new(SessionStoreMock)
			tt.setupMocks(receipts, users, gateway, sessions)

			svc := newTestService(receipts, users, plans, gateway, sessions, now)
			receipt, err := svc.Verify(context.Background(), "ref-1")

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
			default:
				assert.NoError(t, err)
				assert.Equal(t, "completed", receipt.Status)
				assert.Equal(t, "NGN", receipt.Currency)
			}
			receipts.AssertExpectations(t)
			gateway.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestService_Verify_ConfirmFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	receipts := new(ReceiptRepoMock)
	users := new(UserRepoMock)
	plans := new(PlanRepoMock)
	gateway := new(GatewayMock)
	sessions := new(SessionStoreMock)

	sessions.session = &models.PaymentSession{UserUID: "uid-1", PlanID: 2, Months: 1, Amount: 999, Reference: "ref-2"}
	sessions.On("Get", "payment:ref-2", mock.Anything).Return(true, nil).Once()
	gateway.On("VerifyTransaction", mock.Anything, "ref-2").
		Return(&paymentprovider.VerifyResult{Status: "success", Amount: 999}, nil).Once()
	users.On("GetUser", mock.Anything, "uid-1").
		Return(&models.User{UID: "uid-1"}, nil).Once()
	receipts.On("ConfirmPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("db is down")).Once()

	svc := newTestService(receipts, users, plans, gateway, sessions, now)
	_, err := svc.Verify(context.Background(), "ref-2")

	assert.Error(t, err)
	// Сессия не инвалидируется, verify можно повторить.
	sessions.AssertNotCalled(t, "Invalidate", mock.Anything)
}

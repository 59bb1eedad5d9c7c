// Package payment реализует оплату подписки через платёжный шлюз:
// создание сессии, сверку транзакции и активацию подписки.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/aslanbekov/device-registry/internal/lib/rabbitmq"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
	"github.com/aslanbekov/device-registry/internal/paymentprovider"
)

const currency = "NGN"

// ReceiptRepository — запись квитанций и активация подписки.
type ReceiptRepository interface {
	ConfirmPayment(ctx context.Context, receipt models.Receipt, activeTill time.Time) error
	ListReceiptsByUser(ctx context.Context, userUID string) ([]*models.Receipt, error)
}

// UserRepository отдаёт пользователя для адреса оплаты и срока подписки.
type UserRepository interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// PlanRepository отдаёт тарифный план для расчёта суммы.
type PlanRepository interface {
	GetPlan(ctx context.Context, id int) (*models.Plan, error)
}

// Gateway — вызовы платёжного шлюза.
type Gateway interface {
	InitializeTransaction(ctx context.Context, email, reference, currency string, amount int64) (*paymentprovider.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paymentprovider.VerifyResult, error)
}

// SessionStore хранит сессии оплаты с TTL до подтверждения шлюзом.
type SessionStore interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service управляет жизненным циклом оплаты подписки.
type Service struct {
	receipts   ReceiptRepository
	users      UserRepository
	plans      PlanRepository
	gateway    Gateway
	sessions   SessionStore
	channel    *amqp.Channel
	log        *slog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

// New создает новый экземпляр Service. channel может быть nil,
// тогда события оплаты не публикуются.
func New(receipts ReceiptRepository, users UserRepository, plans PlanRepository,
	gateway Gateway, sessions SessionStore, channel *amqp.Channel,
	log *slog.Logger, sessionTTL time.Duration) *Service {
	return &Service{
		receipts:   receipts,
		users:      users,
		plans:      plans,
		gateway:    gateway,
		sessions:   sessions,
		channel:    channel,
		log:        log,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// InitializeResult — итог создания сессии оплаты.
type InitializeResult struct {
	AuthorizationURL string
	Reference        string
}

// Initialize создаёт транзакцию в шлюзе и сохраняет сессию оплаты
// с TTL. Сумма — цена плана за месяц, умноженная на число месяцев,
// в минорных единицах валюты.
func (s *Service) Initialize(ctx context.Context, userUID string, req models.DummyPayment) (*InitializeResult, error) {
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	amount := int64(math.Round(plan.Price * float64(req.Months) * 100))
	reference := uuid.NewString()

	result, err := s.gateway.InitializeTransaction(ctx, user.Email, reference, currency, amount)
	if err != nil {
		return nil, err
	}

	session := models.PaymentSession{
		UserUID:   userUID,
		PlanID:    plan.ID,
		Months:    req.Months,
		Amount:    amount,
		Reference: reference,
	}
	if err := s.sessions.Set(sessionKey(reference), session, s.sessionTTL); err != nil {
		return nil, err
	}

	s.log.Info("payment initialized",
		slog.String("reference", reference),
		slog.String("user_uid", userUID),
		slog.Int64("amount", amount))

	return &InitializeResult{
		AuthorizationURL: result.AuthorizationURL,
		Reference:        reference,
	}, nil
}

// Verify сверяет транзакцию со шлюзом и при успехе записывает квитанцию
// и активирует подписку пользователя в одной транзакции. Срок подписки
// отсчитывается от текущей даты истечения, если подписка ещё действует.
func (s *Service) Verify(ctx context.Context, reference string) (*models.Receipt, error) {
	var session models.PaymentSession
	found, err := s.sessions.Get(sessionKey(reference), &session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrPaymentSessionNotFound
	}

	verification, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if verification.Status != "success" {
		return nil, fmt.Errorf("payment failed: %s", verification.GatewayResponse)
	}
	if verification.Amount != session.Amount {
		return nil, fmt.Errorf("payment amount mismatch: expected %d, got %d",
			session.Amount, verification.Amount)
	}

	user, err := s.users.GetUser(ctx, session.UserUID)
	if err != nil {
		return nil, err
	}
	base := s.now()
	if user.SubActiveTill != nil && user.SubActiveTill.After(base) {
		base = *user.SubActiveTill
	}
	activeTill := base.AddDate(0, session.Months, 0)

	receipt := models.Receipt{
		UserUID:   session.UserUID,
		PlanID:    session.PlanID,
		Reference: reference,
		Amount:    session.Amount,
		Currency:  currency,
		Status:    "completed",
	}
	if err := s.receipts.ConfirmPayment(ctx, receipt, activeTill); err != nil {
		return nil, err
	}

	if err := s.sessions.Invalidate(sessionKey(reference)); err != nil {
		s.log.Warn("failed to invalidate payment session", sl.Err(err),
			slog.String("reference", reference))
	}

	if s.channel != nil {
		event := map[string]any{
			"user_uid":  session.UserUID,
			"plan_id":   session.PlanID,
			"reference": reference,
			"amount":    session.Amount,
		}
		if err := rabbitmq.PublishMessage(s.channel, "notifications", "payment.succeeded", event); err != nil {
			s.log.Warn("failed to publish payment.succeeded", sl.Err(err))
		}
	}

	s.log.Info("payment verified",
		slog.String("reference", reference),
		slog.String("user_uid", session.UserUID),
		slog.Time("active_till", activeTill))

	return &receipt, nil
}

// ListReceipts возвращает квитанции пользователя, новые первыми.
func (s *Service) ListReceipts(ctx context.Context, userUID string) ([]*models.Receipt, error) {
	return s.receipts.ListReceiptsByUser(ctx, userUID)
}

func sessionKey(reference string) string {
	return "payment:" + reference
}

// Package transfer реализует жизненный цикл передачи устройства:
// заявка с окном рассмотрения и её автоматическое разрешение по
// состоянию подписки получателя.
package transfer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
	"github.com/aslanbekov/device-registry/internal/services/quota"
)

// Причины отказа, попадающие в журнал передач.
const (
	ReasonSubscriptionInvalid = "Recipient subscription invalid"
	ReasonDeviceLimitReached  = "Recipient device limit reached"
)

// TransferRepository — транзакционные операции журнала передач.
type TransferRepository interface {
	InitiateTransfer(ctx context.Context, deviceID int, fromUID, toUID, reason string, resolveAt time.Time) (*models.Device, error)
	FindDueTransfersForSender(ctx context.Context, fromUID string, asOf time.Time) ([]*models.TransferRecord, error)
	ApproveDueTransfer(ctx context.Context, recordID int, serialNumber, fromUID, toUID string, maxDevices int) error
	FailDueTransfer(ctx context.Context, recordID int, serialNumber, fromUID, reason string) error
}

// UserRepository ищет получателя передачи.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// QuotaOracle выносит вердикт о ёмкости получателя вместе с квотой его плана.
type QuotaOracle interface {
	ReceiverEligible(ctx context.Context, userUID string) (quota.Verdict, int, error)
}

// Service управляет заявками на передачу и их разрешением.
type Service struct {
	transfers    TransferRepository
	users        UserRepository
	oracle       QuotaOracle
	log          *slog.Logger
	reviewWindow time.Duration
	now          func() time.Time
}

// New создает новый экземпляр Service с окном рассмотрения из конфига.
func New(transfers TransferRepository, users UserRepository, oracle QuotaOracle,
	log *slog.Logger, reviewWindow time.Duration) *Service {
	return &Service{
		transfers:    transfers,
		users:        users,
		oracle:       oracle,
		log:          log,
		reviewWindow: reviewWindow,
		now:          time.Now,
	}
}

// InitiateResult — итог успешной заявки на передачу.
type InitiateResult struct {
	Device            *models.Device
	RecipientUsername string
}

// Initiate создаёт заявку на передачу устройства получателю по email.
// Ёмкость получателя здесь сознательно не проверяется: условия могут
// измениться за окно рассмотрения, авторитетная проверка выполняется
// в момент разрешения. Устройство переходит в статус transfer_pending
// и замораживается до разрешения заявки.
func (s *Service) Initiate(ctx context.Context, deviceID int, fromUID, recipientEmail, reason string) (*InitiateResult, error) {
	recipient, err := s.users.GetUserByEmail(ctx, recipientEmail)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrRecipientNotFound
		}
		return nil, err
	}

	resolveAt := s.now().Add(s.reviewWindow)
	device, err := s.transfers.InitiateTransfer(ctx, deviceID, fromUID, recipient.UID, reason, resolveAt)
	if err != nil {
		return nil, err
	}

	s.log.Info("transfer initiated",
		slog.Int("device_id", device.ID),
		slog.String("serial_number", device.SerialNumber),
		slog.String("to_uid", recipient.UID),
		slog.Time("resolve_at", resolveAt))

	return &InitiateResult{
		Device:            device,
		RecipientUsername: recipient.Username,
	}, nil
}

// ResolveDue разрешает все заявки отправителя, чьё окно рассмотрения
// истекло. Каждая запись обрабатывается в собственной транзакции:
// ошибка одной записи логируется и не прерывает обход остальных.
// Исходы разрешения в журнале, вызывающему ничего не возвращается.
func (s *Service) ResolveDue(ctx context.Context, fromUID string) {
	now := s.now()
	due, err := s.transfers.FindDueTransfersForSender(ctx, fromUID, now)
	if err != nil {
		s.log.Error("failed to find due transfers", sl.Err(err),
			slog.String("from_uid", fromUID))
		return
	}

	for _, record := range due {
		verdict, maxDevices, err := s.oracle.ReceiverEligible(ctx, record.ToUID)
		if err != nil {
			// Получатель мог быть удалён: заявка проваливается как
			// недействительная подписка.
			if errors.Is(err, models.ErrUserNotFound) || errors.Is(err, models.ErrPlanNotFound) {
				verdict = quota.VerdictNoSubscription
			} else {
				s.log.Error("failed to evaluate recipient", sl.Err(err),
					slog.Int("record_id", record.ID),
					slog.String("serial_number", record.SerialNumber))
				continue
			}
		}

		approve, failReason := resolutionFor(verdict)
		if approve {
			err = s.transfers.ApproveDueTransfer(ctx, record.ID,
				record.SerialNumber, record.FromUID, record.ToUID, maxDevices)
		} else {
			err = s.transfers.FailDueTransfer(ctx, record.ID,
				record.SerialNumber, record.FromUID, failReason)
		}
		if err != nil {
			s.log.Error("failed to resolve transfer", sl.Err(err),
				slog.Int("record_id", record.ID),
				slog.String("serial_number", record.SerialNumber))
			continue
		}

		s.log.Info("transfer resolved",
			slog.Int("record_id", record.ID),
			slog.String("serial_number", record.SerialNumber),
			slog.Bool("approved", approve))
	}
}

// resolutionFor отображает вердикт оракула в исход заявки: одобрение
// либо отказ с причиной для журнала.
func resolutionFor(verdict quota.Verdict) (approve bool, failReason string) {
	switch verdict {
	case quota.VerdictOK:
		return true, ""
	case quota.VerdictLimitReached:
		return false, ReasonDeviceLimitReached
	default:
		return false, ReasonSubscriptionInvalid
	}
}

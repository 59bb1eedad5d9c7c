// Package quota проверяет право пользователя держать устройства:
// действует ли его подписка и не исчерпан ли лимит тарифного плана.
package quota

import (
	"context"
	"time"

	"github.com/aslanbekov/device-registry/internal/models"
)

// Verdict — итог проверки ёмкости пользователя как получателя устройства.
type Verdict int

const (
	// VerdictOK — подписка действует и лимит не исчерпан.
	VerdictOK Verdict = iota
	// VerdictNoSubscription — оплаченной подписки нет вовсе.
	VerdictNoSubscription
	// VerdictExpired — подписка была, но срок её действия истёк.
	VerdictExpired
	// VerdictLimitReached — лимит устройств тарифного плана исчерпан.
	VerdictLimitReached
)

// UserRepository отдаёт пользователя с его подписочными полями.
type UserRepository interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// PlanRepository отдаёт тарифный план с его квотой устройств.
type PlanRepository interface {
	GetPlan(ctx context.Context, id int) (*models.Plan, error)
}

// DeviceCounter считает устройства пользователя.
type DeviceCounter interface {
	CountDevicesByOwner(ctx context.Context, ownerUID string) (int, error)
}

// Service инкапсулирует правила квот и действия подписки.
type Service struct {
	users   UserRepository
	plans   PlanRepository
	devices DeviceCounter
	now     func() time.Time
}

// New создает новый экземпляр Service.
func New(users UserRepository, plans PlanRepository, devices DeviceCounter) *Service {
	return &Service{
		users:   users,
		plans:   plans,
		devices: devices,
		now:     time.Now,
	}
}

// MaxDevicesFor возвращает квоту устройств пользователя по его плану.
// Пользователь без действующей подписки получает ErrNoActiveSubscription.
func (s *Service) MaxDevicesFor(ctx context.Context, userUID string) (int, error) {
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return 0, err
	}
	if !subscriptionValid(user, s.now()) {
		return 0, models.ErrNoActiveSubscription
	}
	plan, err := s.plans.GetPlan(ctx, *user.SubscriptionID)
	if err != nil {
		return 0, err
	}
	return plan.MaxDevices, nil
}

// ReceiverEligible выносит вердикт о ёмкости пользователя: сначала
// проверяется действие подписки, затем лимит устройств. Порядок проверок
// определяет причину отказа. Вместе с вердиктом возвращается квота плана,
// чтобы применяющая сторона могла перепроверить лимит под блокировкой.
// Подписка, истекающая ровно в момент проверки, ещё действует.
func (s *Service) ReceiverEligible(ctx context.Context, userUID string) (Verdict, int, error) {
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return VerdictNoSubscription, 0, err
	}
	if user.SubscriptionID == nil || !user.SubActive {
		return VerdictNoSubscription, 0, nil
	}
	if user.SubActiveTill == nil || user.SubActiveTill.Before(s.now()) {
		return VerdictExpired, 0, nil
	}
	plan, err := s.plans.GetPlan(ctx, *user.SubscriptionID)
	if err != nil {
		return VerdictNoSubscription, 0, err
	}
	count, err := s.devices.CountDevicesByOwner(ctx, userUID)
	if err != nil {
		return VerdictNoSubscription, 0, err
	}
	if count >= plan.MaxDevices {
		return VerdictLimitReached, plan.MaxDevices, nil
	}
	return VerdictOK, plan.MaxDevices, nil
}

// HasCapacity сообщает, годится ли пользователь в получатели ещё одного
// устройства прямо сейчас.
func (s *Service) HasCapacity(ctx context.Context, userUID string) (bool, error) {
	verdict, _, err := s.ReceiverEligible(ctx, userUID)
	if err != nil {
		return false, err
	}
	return verdict == VerdictOK, nil
}

// subscriptionValid сообщает, действует ли подписка пользователя в момент now.
// Граница включена: подписка до now действует в сам момент now.
func subscriptionValid(user *models.User, now time.Time) bool {
	return user.SubActive &&
		user.SubscriptionID != nil &&
		user.SubActiveTill != nil &&
		!user.SubActiveTill.Before(now)
}

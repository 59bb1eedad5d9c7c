package models

import (
	"errors"
	"fmt"
)

// Ошибки доменного уровня. Обработчики переводят их в клиентские ответы,
// всё остальное считается внутренней ошибкой сервера.
var (
	// ErrDeviceNotFound возвращается и когда устройства нет, и когда оно
	// принадлежит другому пользователю: ответ не должен раскрывать
	// существование чужих устройств.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrQuotaExceeded — лимит устройств тарифного плана исчерпан.
	ErrQuotaExceeded = errors.New("device limit reached")
	// ErrNoActiveSubscription — у пользователя нет действующей подписки.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrTransferInProgress — устройство уже находится на рассмотрении передачи.
	ErrTransferInProgress = errors.New("device transfer already in progress")
	// ErrRecipientNotFound — получатель передачи не найден по email.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrPlanNotFound — тарифный план не найден.
	ErrPlanNotFound = errors.New("subscription plan not found")
	// ErrPaymentSessionNotFound — сессия оплаты истекла или не существует.
	ErrPaymentSessionNotFound = errors.New("payment session not found")
)

// DuplicateIdentityError — конфликт уникальности идентичности
// (серийный номер, IMEI, email или username уже заняты).
type DuplicateIdentityError struct {
	Field string // serial_number, imei1, imei2, email или username
	Value string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s %q is already registered", e.Field, e.Value)
}

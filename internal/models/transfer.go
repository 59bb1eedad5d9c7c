package models

import "time"

// Статусы записи о передаче устройства.
// TransferStatusCancelled зарезервирован: ни один код до него не доходит.
const (
	TransferStatusPending   = "transfer_pending"
	TransferStatusApproved  = "transfer_approved"
	TransferStatusCancelled = "transfer_cancelled"
	TransferStatusFailed    = "failed"
)

// TransferRecord — запись журнала передач: снимок идентичности устройства
// на момент заявки плюс исход. Устройство связывается по серийному номеру,
// а не по id, чтобы история переживала изменение атрибутов устройства.
type TransferRecord struct {
	ID           int
	SerialNumber string // Серийный номер устройства на момент заявки
	Name         string
	IMEI1        string
	IMEI2        string
	Type         string
	FromUID      string    // UID отправителя
	ToUID        string    // UID получателя
	Status       string    // transfer_pending / transfer_approved / transfer_cancelled / failed
	Reason       string    // Причина заявки либо причина отказа
	TransferDate time.Time // Запланированное время разрешения заявки
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

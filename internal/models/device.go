// Package models содержит доменные структуры реестра устройств,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Статусы устройства.
const (
	DeviceStatusActive          = "active"
	DeviceStatusInactive        = "inactive"
	DeviceStatusLost            = "lost"
	DeviceStatusStolen          = "stolen"
	DeviceStatusTransferPending = "transfer_pending"
)

// Device представляет зарегистрированное устройство.
// Серийный номер уникален всегда, IMEI уникальны только когда заполнены.
type Device struct {
	ID           int        // Идентификатор записи
	SerialNumber string     // Серийный номер, основной ключ кросс-ссылок
	IMEI1        string     // Первый IMEI, может быть пустым
	IMEI2        string     // Второй IMEI, может быть пустым
	Name         string     // Название устройства
	Type         string     // Тип устройства
	Status       string     // Текущий статус (active, inactive, lost, stolen, transfer_pending)
	Location     string     // Последнее известное местоположение
	Description  string     // Произвольное описание
	PurchaseDate *time.Time // Дата покупки
	OwnerUID     string     // UID владельца
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DummyDevice используется для приёма данных из JSON-запроса на создание устройства.
type DummyDevice struct {
	Name         string `json:"name" validate:"required"`
	Type         string `json:"type" validate:"required"`
	SerialNumber string `json:"serial_number" validate:"required,min=5"`
	IMEI1        string `json:"imei1" validate:"omitempty,len=15,numeric"`
	IMEI2        string `json:"imei2" validate:"omitempty,len=15,numeric"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	PurchaseDate string `json:"purchase_date"` // Дата в формате 02-01-2006, опционально
}

// DummyStatusUpdate используется для приёма запроса на смену статуса устройства.
type DummyStatusUpdate struct {
	Status      string `json:"status" validate:"required,oneof=active inactive lost stolen"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// DummyTransfer используется для приёма запроса на передачу устройства.
type DummyTransfer struct {
	DeviceID       int    `json:"device_id" validate:"required,gt=0"`
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
	Reason         string `json:"reason"`
}

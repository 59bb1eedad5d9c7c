package models

import "time"

// Receipt — квитанция об оплате подписки через платёжный шлюз.
type Receipt struct {
	ID        int
	UserUID   string
	PlanID    int
	Reference string // Уникальная ссылка транзакции в шлюзе
	Amount    int64  // Сумма в минорных единицах валюты
	Currency  string
	Status    string
	CreatedAt time.Time
}

// PaymentSession — отложенная сессия оплаты, хранится во внешнем
// key-value хранилище с TTL до подтверждения шлюзом.
type PaymentSession struct {
	UserUID   string `json:"user_uid"`
	PlanID    int    `json:"plan_id"`
	Months    int    `json:"months"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// DummyPayment используется для приёма запроса на оплату подписки.
type DummyPayment struct {
	PlanID int `json:"plan_id" validate:"required,gt=0"`
	Months int `json:"months" validate:"required,gt=0,lte=24"`
}

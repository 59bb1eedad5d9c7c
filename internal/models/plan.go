package models

// Plan — тарифный план подписки: сколько устройств разрешает и сколько стоит.
type Plan struct {
	ID         int
	Name       string
	MaxDevices int     // Квота устройств на пользователя
	Price      float64 // Цена за месяц
}

// DummyPlan используется для приёма данных тарифного плана из JSON-запроса.
type DummyPlan struct {
	Name       string  `json:"name" validate:"required"`
	MaxDevices int     `json:"max_devices" validate:"required,gt=0"`
	Price      float64 `json:"price" validate:"required,gt=0"`
}

package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID            string     // Уникальный идентификатор пользователя
	Email          string     // Электронная почта (уникальная)
	Username       string     // Имя пользователя (уникальное)
	PasswordHash   string     // Хэш пароля
	Role           string     // Роль пользователя, admin или user
	SubActive      bool       // Активна ли оплаченная подписка
	SubActiveTill  *time.Time // Дата истечения подписки
	SubscriptionID *int       // Ссылка на тарифный план
	CreatedAt      time.Time
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum,min=3"`
	Password string `json:"password" validate:"required,min=8"`
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

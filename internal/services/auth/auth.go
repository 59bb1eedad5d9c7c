// Package auth содержит логику регистрации, авторизации и валидации JWT.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/aslanbekov/device-registry/internal/lib/jwt"
	"github.com/aslanbekov/device-registry/internal/lib/password"
	"github.com/aslanbekov/device-registry/internal/lib/rabbitmq"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, email, username, passwordHash, role string) (string, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker *jwt.Maker
	channel  *amqp.Channel
	log      *slog.Logger
}

// New создает новый экземпляр Service. channel может быть nil,
// тогда события регистрации не публикуются.
func New(users UserRepository, jwtMaker *jwt.Maker, channel *amqp.Channel, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		channel:  channel,
		log:      log,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной
// ролью "user", после чего публикует событие user.registered.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}

	uid, err := s.users.RegisterUser(ctx, email, username, hashed, "user")
	if err != nil {
		return "", err
	}

	if s.channel != nil {
		event := map[string]string{
			"user_uid": uid,
			"email":    email,
			"username": username,
		}
		if err := rabbitmq.PublishMessage(s.channel, "notifications", "user.registered", event); err != nil {
			// Событие уведомления не критично для регистрации.
			s.log.Warn("failed to publish user.registered", sl.Err(err))
		}
	}

	return uid, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", errors.New("invalid credentials")
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", errors.New("invalid credentials")
	}
	token, err = s.jwtMaker.GenerateToken(user.UID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает claims пользователя.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}

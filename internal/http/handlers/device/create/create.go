// Package create реализует HTTP-обработчик для регистрации новых устройств.
//
// Handler принимает JSON-запрос с данными устройства, валидирует их, извлекает
// UID владельца из контекста, вызывает бизнес-логику регистрации через сервис
// и возвращает ID созданной записи в JSON-формате.
//
// В случае ошибок формируются соответствующие HTTP-ответы с описанием проблемы.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/aslanbekov/device-registry/internal/http/middlewarectx"
	"github.com/aslanbekov/device-registry/internal/http/response"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
)

// Handler управляет HTTP-запросами на регистрацию устройств.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики реестра устройств
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики регистрации устройства.
type Service interface {
	Create(ctx context.Context, ownerUID string, req models.DummyDevice) (int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Зарегистрировать новое устройство
// @Description Регистрирует устройство на текущего пользователя. Возвращает ID созданной записи.
// @Tags Devices
// @Accept  json
// @Produce  json
// @Param request body models.DummyDevice true "Данные нового устройства"
// @Success 201 {object} map[string]any "Успешная регистрация устройства"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или конфликт идентичности"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при регистрации"
// @Security BearerAuth
// @Router /api/v1/devices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyDevice
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	ownerUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || ownerUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := h.service.Create(r.Context(), ownerUID, req)
	if err != nil {
		var dup *models.DuplicateIdentityError
		switch {
		case errors.As(err, &dup):
			log.Error("duplicate device identity", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(dup.Error()))
		case errors.Is(err, models.ErrQuotaExceeded):
			log.Error("device quota exceeded", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("device limit reached"))
		case errors.Is(err, models.ErrNoActiveSubscription):
			log.Error("no active subscription", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("no active subscription"))
		default:
			log.Error("failed to create device", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create device"))
		}
		return
	}

	log.Info("device registered", slog.Int("id", id))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"device_id": id,
	}))
}

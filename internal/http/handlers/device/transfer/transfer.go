// Package transfer реализует HTTP-обработчик заявки на передачу устройства.
//
// Успешная заявка переводит устройство в статус transfer_pending; исход
// определится автоматически по истечении окна рассмотрения.
package transfer

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
	transferservice "github.com/aslanbekov/device-registry/internal/services/transfer"
)

// Handler управляет HTTP-запросами на передачу устройств.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики заявки на передачу.
type Service interface {
	Initiate(ctx context.Context, deviceID int, fromUID, recipientEmail, reason string) (*transferservice.InitiateResult, error)
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
// @Summary Передать устройство другому пользователю
// @Description Создаёт заявку на передачу устройства получателю по email. Устройство замораживается до автоматического разрешения заявки.
// @Tags Devices
// @Accept  json
// @Produce  json
// @Param request body models.DummyTransfer true "Данные передачи"
// @Success 200 {object} map[string]any "Заявка создана"
// @Failure 400 {object} response.ErrorResponse "Устройство не найдено, занято передачей или получатель не найден"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /api/v1/devices/transfer [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.transfer"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyTransfer
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

	fromUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || fromUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Initiate(r.Context(), req.DeviceID, fromUID, req.RecipientEmail, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDeviceNotFound):
			log.Error("device not found", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("device not found"))
		case errors.Is(err, models.ErrTransferInProgress):
			log.Error("transfer already in progress", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("device transfer already in progress"))
		case errors.Is(err, models.ErrRecipientNotFound):
			log.Error("recipient not found", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("recipient not found"))
		default:
			log.Error("failed to initiate transfer", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not initiate transfer"))
		}
		return
	}

	log.Info("transfer initiated",
		slog.Int("device_id", result.Device.ID),
		slog.String("new_owner", result.RecipientUsername))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"device_id": result.Device.ID,
		"new_owner": result.RecipientUsername,
		"status":    result.Device.Status,
	}))
}

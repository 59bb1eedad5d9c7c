// Package devicestatus реализует административный HTTP-обработчик смены
// статуса устройства без проверки владельца. Устройство в статусе
// transfer_pending заморожено и для администратора.
package devicestatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/aslanbekov/device-registry/internal/http/response"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
)

// Handler управляет административными запросами на смену статуса устройства.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики административной смены статуса.
type Service interface {
	UpdateStatusAdmin(ctx context.Context, id int, req models.DummyStatusUpdate) (*models.Device, error)
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
// @Summary Сменить статус устройства (админ)
// @Description Меняет статус любого устройства без проверки владельца. Только для администраторов.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path int true "ID устройства"
// @Param request body models.DummyStatusUpdate true "Новый статус"
// @Success 200 {object} map[string]any "Обновлённое устройство"
// @Failure 400 {object} response.ErrorResponse "Устройство не найдено или заморожено передачей"
// @Failure 403 {object} response.ErrorResponse "Доступ запрещён"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/devices/{id}/status [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.devicestatus"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		log.Error("invalid device id", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid device id"))
		return
	}

	var req models.DummyStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	device, err := h.service.UpdateStatusAdmin(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, models.ErrDeviceNotFound) {
			log.Error("device not found", slog.Int("id", id))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("device not found"))
			return
		}
		log.Error("failed to update device status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update device status"))
		return
	}

	log.Info("device status updated by admin",
		slog.Int("id", device.ID),
		slog.String("status", device.Status))
	render.JSON(w, r, response.StatusOKWithData(device))
}

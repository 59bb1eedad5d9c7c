// Package list реализует HTTP-обработчик выдачи устройств пользователя.
//
// Перед выборкой сервис разрешает просроченные заявки пользователя на
// передачу, поэтому список всегда отражает актуальное владение.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/aslanbekov/device-registry/internal/http/middlewarectx"
	"github.com/aslanbekov/device-registry/internal/http/response"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
)

// Handler управляет HTTP-запросами на выдачу списка устройств.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выдачи устройств.
type Service interface {
	List(ctx context.Context, ownerUID string) ([]*models.Device, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список устройств пользователя
// @Description Возвращает устройства текущего пользователя, новые первыми. Просроченные заявки на передачу разрешаются перед выборкой.
// @Tags Devices
// @Produce  json
// @Success 200 {object} map[string]any "Список устройств"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /api/v1/devices [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ownerUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || ownerUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	devices, err := h.service.List(r.Context(), ownerUID)
	if err != nil {
		log.Error("failed to list devices", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list devices"))
		return
	}

	log.Info("devices listed", slog.Int("count", len(devices)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"devices": devices,
		"count":   len(devices),
	}))
}

// Package devices реализует административный HTTP-обработчик обзора всех устройств.
package devices

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/aslanbekov/device-registry/internal/http/response"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
)

// Handler управляет административными запросами на обзор устройств.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики обзора устройств.
type Service interface {
	ListAll(ctx context.Context, limit, offset int) ([]*models.Device, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Все устройства (админ)
// @Description Возвращает все устройства с пагинацией. Только для администраторов.
// @Tags Admin
// @Produce  json
// @Param limit query int false "Размер страницы" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]any "Список устройств"
// @Failure 403 {object} response.ErrorResponse "Доступ запрещён"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/devices [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.devices"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset := pagination(r)
	devices, err := h.service.ListAll(r.Context(), limit, offset)
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
		"limit":   limit,
		"offset":  offset,
	}))
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// Package search реализует HTTP-обработчик поиска устройства по идентичности:
// серийному номеру или любому из IMEI, вместе с историей передач.
package search

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/aslanbekov/device-registry/internal/http/response"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/models"
	deviceservice "github.com/aslanbekov/device-registry/internal/services/device"
)

// Handler управляет HTTP-запросами на поиск устройства.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики поиска устройства.
type Service interface {
	SearchByIdentity(ctx context.Context, q string) (*deviceservice.SearchResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Найти устройство по серийному номеру или IMEI
// @Description Возвращает устройство и его историю передач, новые первыми.
// @Tags Devices
// @Produce  json
// @Param imei query string true "Серийный номер или IMEI"
// @Success 200 {object} map[string]any "Устройство и история передач"
// @Failure 400 {object} response.ErrorResponse "Пустой запрос или устройство не найдено"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /api/v1/devices/search [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.search"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query().Get("imei")
	if q == "" {
		q = r.URL.Query().Get("q")
	}
	if q == "" {
		log.Error("empty search query")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("query parameter imei is required"))
		return
	}

	result, err := h.service.SearchByIdentity(r.Context(), q)
	if err != nil {
		if errors.Is(err, models.ErrDeviceNotFound) {
			log.Error("device not found", slog.String("query", q))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("device not found"))
			return
		}
		log.Error("failed to search device", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not search device"))
		return
	}

	log.Info("device found",
		slog.String("serial_number", result.Device.SerialNumber),
		slog.Int("transfers", len(result.Transfers)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"device":    result.Device,
		"transfers": result.Transfers,
	}))
}

// Package transfers реализует административный HTTP-обработчик обзора журнала передач.
package transfers

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

// Handler управляет административными запросами на обзор журнала передач.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики обзора журнала передач.
type Service interface {
	ListAllTransfers(ctx context.Context, status string, limit, offset int) ([]*models.TransferRecord, int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Журнал передач (админ)
// @Description Возвращает записи журнала передач с фильтром по статусу и пагинацией. Только для администраторов.
// @Tags Admin
// @Produce  json
// @Param status query string false "Фильтр по статусу записи"
// @Param limit query int false "Размер страницы" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]any "Записи журнала и общее число"
// @Failure 403 {object} response.ErrorResponse "Доступ запрещён"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /admin/transfers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.transfers"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	status := r.URL.Query().Get("status")
	limit, offset := pagination(r)

	records, total, err := h.service.ListAllTransfers(r.Context(), status, limit, offset)
	if err != nil {
		log.Error("failed to list transfers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list transfers"))
		return
	}

	log.Info("transfers listed", slog.Int("count", len(records)), slog.Int("total", total))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"transfers": records,
		"count":     len(records),
		"total":     total,
		"limit":     limit,
		"offset":    offset,
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

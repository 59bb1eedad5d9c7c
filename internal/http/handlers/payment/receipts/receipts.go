// Package receipts реализует HTTP-обработчик выдачи квитанций пользователя.
package receipts

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

// Handler управляет HTTP-запросами на выдачу квитанций.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выдачи квитанций.
type Service interface {
	ListReceipts(ctx context.Context, userUID string) ([]*models.Receipt, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список квитанций пользователя
// @Description Возвращает квитанции об оплате текущего пользователя, новые первыми.
// @Tags Payments
// @Produce  json
// @Success 200 {object} map[string]any "Список квитанций"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /api/v1/payments/receipts [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.receipts"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	receipts, err := h.service.ListReceipts(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list receipts", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list receipts"))
		return
	}

	log.Info("receipts listed", slog.Int("count", len(receipts)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"receipts": receipts,
		"count":    len(receipts),
	}))
}

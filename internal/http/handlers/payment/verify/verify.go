// Package verify реализует HTTP-обработчик сверки оплаты с платёжным шлюзом.
package verify

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
)

// Handler управляет HTTP-запросами на сверку оплаты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики сверки оплаты.
type Service interface {
	Verify(ctx context.Context, reference string) (*models.Receipt, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сверить оплату и активировать подписку
// @Description Сверяет транзакцию со шлюзом по ссылке; при успехе записывает квитанцию и активирует подписку.
// @Tags Payments
// @Produce  json
// @Param reference query string true "Ссылка транзакции"
// @Success 200 {object} map[string]any "Квитанция"
// @Failure 400 {object} response.ErrorResponse "Сессия не найдена или оплата не прошла"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера или шлюза"
// @Security BearerAuth
// @Router /api/v1/payments/verify [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	reference := r.URL.Query().Get("reference")
	if reference == "" {
		log.Error("missing reference")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("query parameter reference is required"))
		return
	}

	receipt, err := h.service.Verify(r.Context(), reference)
	if err != nil {
		if errors.Is(err, models.ErrPaymentSessionNotFound) {
			log.Error("payment session not found", slog.String("reference", reference))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("payment session expired or not found"))
			return
		}
		log.Error("failed to verify payment", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment verification failed"))
		return
	}

	log.Info("payment verified", slog.String("reference", reference))
	render.JSON(w, r, response.StatusOKWithData(receipt))
}

// Package initialize реализует HTTP-обработчик создания сессии оплаты подписки.
package initialize

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
	paymentservice "github.com/aslanbekov/device-registry/internal/services/payment"
)

// Handler управляет HTTP-запросами на создание сессии оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания сессии оплаты.
type Service interface {
	Initialize(ctx context.Context, userUID string, req models.DummyPayment) (*paymentservice.InitializeResult, error)
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
// @Summary Создать сессию оплаты подписки
// @Description Создаёт транзакцию в платёжном шлюзе и возвращает адрес страницы оплаты.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body models.DummyPayment true "План и длительность"
// @Success 200 {object} map[string]any "Адрес оплаты и ссылка транзакции"
// @Failure 400 {object} response.ErrorResponse "План не найден"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера или шлюза"
// @Security BearerAuth
// @Router /api/v1/payments/initialize [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.initialize"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPayment
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Initialize(r.Context(), userUID, req)
	if err != nil {
		if errors.Is(err, models.ErrPlanNotFound) {
			log.Error("plan not found", slog.Int("plan_id", req.PlanID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("subscription plan not found"))
			return
		}
		log.Error("failed to initialize payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not initialize payment"))
		return
	}

	log.Info("payment initialized", slog.String("reference", result.Reference))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"authorization_url": result.AuthorizationURL,
		"reference":         result.Reference,
	}))
}

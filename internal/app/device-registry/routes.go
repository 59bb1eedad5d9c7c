// Package deviceregistry предоставляет маршруты для основного приложения.
package deviceregistry

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	admindevices "github.com/aslanbekov/device-registry/internal/http/handlers/admin/devices"
	admindevicestatus "github.com/aslanbekov/device-registry/internal/http/handlers/admin/devicestatus"
	admintransfers "github.com/aslanbekov/device-registry/internal/http/handlers/admin/transfers"
	"github.com/aslanbekov/device-registry/internal/http/handlers/auth/login"
	"github.com/aslanbekov/device-registry/internal/http/handlers/auth/register"
	devicecreate "github.com/aslanbekov/device-registry/internal/http/handlers/device/create"
	devicelist "github.com/aslanbekov/device-registry/internal/http/handlers/device/list"
	devicesearch "github.com/aslanbekov/device-registry/internal/http/handlers/device/search"
	devicestatus "github.com/aslanbekov/device-registry/internal/http/handlers/device/status"
	devicetransfer "github.com/aslanbekov/device-registry/internal/http/handlers/device/transfer"
	"github.com/aslanbekov/device-registry/internal/http/handlers/health"
	paymentinitialize "github.com/aslanbekov/device-registry/internal/http/handlers/payment/initialize"
	paymentreceipts "github.com/aslanbekov/device-registry/internal/http/handlers/payment/receipts"
	paymentverify "github.com/aslanbekov/device-registry/internal/http/handlers/payment/verify"
	plancreate "github.com/aslanbekov/device-registry/internal/http/handlers/plan/create"
	planlist "github.com/aslanbekov/device-registry/internal/http/handlers/plan/list"
	planread "github.com/aslanbekov/device-registry/internal/http/handlers/plan/read"
	planremove "github.com/aslanbekov/device-registry/internal/http/handlers/plan/remove"
	planupdate "github.com/aslanbekov/device-registry/internal/http/handlers/plan/update"
	"github.com/aslanbekov/device-registry/internal/http/middlewarectx"
	authservice "github.com/aslanbekov/device-registry/internal/services/auth"
	deviceservice "github.com/aslanbekov/device-registry/internal/services/device"
	paymentservice "github.com/aslanbekov/device-registry/internal/services/payment"
	planservice "github.com/aslanbekov/device-registry/internal/services/plan"
	transferservice "github.com/aslanbekov/device-registry/internal/services/transfer"
	"github.com/aslanbekov/device-registry/internal/storage"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *storage.Storage,
	authService *authservice.Service, deviceService *deviceservice.Service,
	transferService *transferservice.Service, planService *planservice.Service,
	paymentService *paymentservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Открытые конечные точки
	r.Post("/register", register.New(logger, authService).ServeHTTP)
	r.Post("/login", login.New(logger, authService).ServeHTTP)
	r.Get("/health", health.New(logger, db).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", planlist.New(logger, planService).ServeHTTP)
		r.Get("/plans/{id}", planread.New(logger, planService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/devices", devicecreate.New(logger, deviceService).ServeHTTP)
			r.Get("/devices", devicelist.New(logger, deviceService).ServeHTTP)
			r.Get("/devices/search", devicesearch.New(logger, deviceService).ServeHTTP)
			r.Put("/devices/transfer", devicetransfer.New(logger, transferService).ServeHTTP)
			r.Put("/devices/{id}/status", devicestatus.New(logger, deviceService).ServeHTTP)

			r.Post("/payments/initialize", paymentinitialize.New(logger, paymentService).ServeHTTP)
			r.Get("/payments/verify", paymentverify.New(logger, paymentService).ServeHTTP)
			r.Get("/payments/receipts", paymentreceipts.New(logger, paymentService).ServeHTTP)
		})
	})

	// Административная группа
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(authService, logger))
		r.Use(middlewarectx.RequireAdmin(logger))

		r.Get("/devices", admindevices.New(logger, deviceService).ServeHTTP)
		r.Put("/devices/{id}/status", admindevicestatus.New(logger, deviceService).ServeHTTP)
		r.Get("/transfers", admintransfers.New(logger, db).ServeHTTP)

		r.Post("/plans", plancreate.New(logger, planService).ServeHTTP)
		r.Put("/plans/{id}", planupdate.New(logger, planService).ServeHTTP)
		r.Delete("/plans/{id}", planremove.New(logger, planService).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

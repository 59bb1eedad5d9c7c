// Package deviceregistry собирает приложение реестра устройств:
// хранилище, кеш, брокер событий, сервисы и HTTP-сервер.
package deviceregistry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/aslanbekov/device-registry/internal/cache"
	"github.com/aslanbekov/device-registry/internal/config"
	"github.com/aslanbekov/device-registry/internal/lib/jwt"
	"github.com/aslanbekov/device-registry/internal/lib/rabbitmq"
	"github.com/aslanbekov/device-registry/internal/lib/sl"
	"github.com/aslanbekov/device-registry/internal/migrations"
	"github.com/aslanbekov/device-registry/internal/paymentprovider"
	authservice "github.com/aslanbekov/device-registry/internal/services/auth"
	deviceservice "github.com/aslanbekov/device-registry/internal/services/device"
	paymentservice "github.com/aslanbekov/device-registry/internal/services/payment"
	planservice "github.com/aslanbekov/device-registry/internal/services/plan"
	quotaservice "github.com/aslanbekov/device-registry/internal/services/quota"
	transferservice "github.com/aslanbekov/device-registry/internal/services/transfer"
	"github.com/aslanbekov/device-registry/internal/storage"
)

type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *storage.Storage
	rabbit  *amqp.Connection
	channel *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Без брокера приложение работает, события просто не публикуются.
	var rabbitConn *amqp.Connection
	var channel *amqp.Channel
	if cfg.RabbitMQURL != "" {
		rabbitConn, err = rabbitmq.Connect(cfg.RabbitMQURL, 5, 3*time.Second)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled", sl.Err(err))
		} else {
			channel, err = rabbitmq.SetupChannel(rabbitConn, rabbitmq.GetNotificationQueues())
			if err != nil {
				return nil, err
			}
		}
	}

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := paymentprovider.New(cfg.Paystack.SecretKey, "")

	quotaService := quotaservice.New(db, db, db)
	transferService := transferservice.New(db, db, quotaService, logger, cfg.Transfer.ReviewWindow)
	deviceService := deviceservice.New(db, quotaService, transferService, logger)
	authService := authservice.New(db, jwtMaker, channel, logger)
	planService := planservice.New(db, cacheRedis, logger)
	paymentService := paymentservice.New(db, db, db, gateway, cacheRedis, channel,
		logger, cfg.Paystack.SessionTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, authService,
		deviceService, transferService, planService, paymentService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		logger:  logger,
		db:      db,
		rabbit:  rabbitConn,
		channel: channel,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.channel != nil {
			_ = a.channel.Close()
		}
		if a.rabbit != nil {
			_ = a.rabbit.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}

// Package plan содержит бизнес-логику для управления тарифными планами
// и кеширования их чтений.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aslanbekov/device-registry/internal/models"
)

// PlanRepository определяет методы для работы с тарифными планами в хранилище.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan models.Plan) (int, error)
	GetPlan(ctx context.Context, id int) (*models.Plan, error)
	ListPlans(ctx context.Context) ([]*models.Plan, error)
	UpdatePlan(ctx context.Context, id int, plan models.Plan) error
	RemovePlan(ctx context.Context, id int) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует операции над тарифными планами с кешированием чтений.
type Service struct {
	repo  PlanRepository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo PlanRepository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create создает новый тарифный план и возвращает его ID.
func (s *Service) Create(ctx context.Context, req models.DummyPlan) (int, error) {
	id, err := s.repo.CreatePlan(ctx, models.Plan{
		Name:       req.Name,
		MaxDevices: req.MaxDevices,
		Price:      req.Price,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("created new plan", slog.Int("id", id), slog.String("name", req.Name))
	return id, nil
}

// Read возвращает тарифный план по ID, используя кеш или репозиторий.
func (s *Service) Read(ctx context.Context, id int) (*models.Plan, error) {
	var result *models.Plan
	cacheKey := fmt.Sprintf("plan:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		return nil, err
	}
	if found {
		return result, nil
	}
	result, err = s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to cache plan", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return result, nil
}

// List возвращает все тарифные планы.
func (s *Service) List(ctx context.Context) ([]*models.Plan, error) {
	return s.repo.ListPlans(ctx)
}

// Update обновляет тарифный план и инвалидирует кеш.
func (s *Service) Update(ctx context.Context, id int, req models.DummyPlan) error {
	err := s.repo.UpdatePlan(ctx, id, models.Plan{
		Name:       req.Name,
		MaxDevices: req.MaxDevices,
		Price:      req.Price,
	})
	if err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// Remove удаляет тарифный план и инвалидирует кеш.
func (s *Service) Remove(ctx context.Context, id int) error {
	if err := s.repo.RemovePlan(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

func (s *Service) invalidate(id int) {
	cacheKey := fmt.Sprintf("plan:%d", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate plan cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
}

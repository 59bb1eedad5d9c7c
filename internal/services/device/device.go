// Package device реализует бизнес-логику реестра устройств: регистрацию
// с проверкой квоты, выдачу списка с ленивым разрешением передач,
// смену статуса и поиск по идентичности.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aslanbekov/device-registry/internal/models"
)

// DeviceRepository определяет методы для работы с устройствами в хранилище.
type DeviceRepository interface {
	CreateDevice(ctx context.Context, device models.Device, maxDevices int) (int, error)
	ListDevicesByOwner(ctx context.Context, ownerUID string) ([]*models.Device, error)
	ListAllDevices(ctx context.Context, limit, offset int) ([]*models.Device, error)
	GetDevice(ctx context.Context, id int) (*models.Device, error)
	FindDeviceByIdentity(ctx context.Context, q string) (*models.Device, error)
	UpdateDeviceStatus(ctx context.Context, id int, ownerUID, status, location, description string) (*models.Device, error)
	UpdateDeviceStatusAdmin(ctx context.Context, id int, status, location, description string) (*models.Device, error)
	ListTransfersBySerial(ctx context.Context, serialNumber string) ([]*models.TransferRecord, error)
}

// QuotaOracle отдаёт квоту устройств пользователя по его плану.
type QuotaOracle interface {
	MaxDevicesFor(ctx context.Context, userUID string) (int, error)
}

// TransferResolver разрешает просроченные заявки отправителя.
type TransferResolver interface {
	ResolveDue(ctx context.Context, fromUID string)
}

// Service реализует операции реестра устройств.
type Service struct {
	repo     DeviceRepository
	oracle   QuotaOracle
	resolver TransferResolver
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo DeviceRepository, oracle QuotaOracle, resolver TransferResolver, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		oracle:   oracle,
		resolver: resolver,
		log:      log,
	}
}

// Create регистрирует новое устройство владельцу. Квота берётся из
// тарифного плана владельца, сама проверка количества выполняется
// в хранилище внутри транзакции вставки.
func (s *Service) Create(ctx context.Context, ownerUID string, req models.DummyDevice) (int, error) {
	maxDevices, err := s.oracle.MaxDevicesFor(ctx, ownerUID)
	if err != nil {
		return 0, err
	}

	var purchaseDate *time.Time
	if req.PurchaseDate != "" {
		parsed, err := time.Parse("02-01-2006", req.PurchaseDate)
		if err != nil {
			return 0, fmt.Errorf("invalid purchase date: %w", err)
		}
		purchaseDate = &parsed
	}

	device := models.Device{
		SerialNumber: req.SerialNumber,
		IMEI1:        req.IMEI1,
		IMEI2:        req.IMEI2,
		Name:         req.Name,
		Type:         req.Type,
		Location:     req.Location,
		Description:  req.Description,
		PurchaseDate: purchaseDate,
		OwnerUID:     ownerUID,
	}

	id, err := s.repo.CreateDevice(ctx, device, maxDevices)
	if err != nil {
		return 0, err
	}

	s.log.Info("registered new device",
		slog.Int("id", id),
		slog.String("serial_number", device.SerialNumber))
	return id, nil
}

// List возвращает устройства пользователя, новые первыми. Перед выборкой
// разрешаются его просроченные заявки на передачу: одобренные устройства
// исчезают из списка, отклонённые возвращаются в статус active.
func (s *Service) List(ctx context.Context, ownerUID string) ([]*models.Device, error) {
	s.resolver.ResolveDue(ctx, ownerUID)
	return s.repo.ListDevicesByOwner(ctx, ownerUID)
}

// ListAll возвращает все устройства с пагинацией (админский обзор).
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*models.Device, error) {
	return s.repo.ListAllDevices(ctx, limit, offset)
}

// UpdateStatus меняет статус устройства владельца. Устройство в статусе
// transfer_pending заморожено до разрешения заявки.
func (s *Service) UpdateStatus(ctx context.Context, id int, ownerUID string, req models.DummyStatusUpdate) (*models.Device, error) {
	return s.repo.UpdateDeviceStatus(ctx, id, ownerUID, req.Status, req.Location, req.Description)
}

// UpdateStatusAdmin — административный вариант без проверки владельца.
func (s *Service) UpdateStatusAdmin(ctx context.Context, id int, req models.DummyStatusUpdate) (*models.Device, error) {
	return s.repo.UpdateDeviceStatusAdmin(ctx, id, req.Status, req.Location, req.Description)
}

// SearchResult — устройство вместе с его историей передач.
type SearchResult struct {
	Device    *models.Device
	Transfers []*models.TransferRecord
}

// SearchByIdentity ищет устройство по серийному номеру или IMEI и
// возвращает его вместе с историей передач, новые первыми.
func (s *Service) SearchByIdentity(ctx context.Context, q string) (*SearchResult, error) {
	device, err := s.repo.FindDeviceByIdentity(ctx, q)
	if err != nil {
		return nil, err
	}
	transfers, err := s.repo.ListTransfersBySerial(ctx, device.SerialNumber)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Device: device, Transfers: transfers}, nil
}

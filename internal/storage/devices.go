package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aslanbekov/device-registry/internal/models"
)

// deviceColumns — общий список колонок для выборок устройства.
const deviceColumns = `id, serial_number, imei1, imei2, name, type, status,
	location, description, purchase_date, owner_uid, created_at, updated_at`

// CreateDevice вставляет новое устройство с проверкой квоты владельца.
// Проверка количества и вставка выполняются в одной транзакции под
// блокировкой строки пользователя, поэтому два конкурентных создания
// не могут одновременно увидеть "квота не исчерпана". Конфликты
// уникальности серийного номера и IMEI ловятся по ошибке индекса.
func (s *Storage) CreateDevice(ctx context.Context, device models.Device, maxDevices int) (int, error) {
	const op = "storage.CreateDevice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var uid string
		err := tx.QueryRowContext(ctx,
			`SELECT uid FROM users WHERE uid = $1 FOR UPDATE`, device.OwnerUID).Scan(&uid)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrUserNotFound
			}
			return err
		}

		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM devices WHERE owner_uid = $1`, device.OwnerUID).Scan(&count)
		if err != nil {
			return err
		}
		if count >= maxDevices {
			return models.ErrQuotaExceeded
		}

		query := `INSERT INTO devices (serial_number, imei1, imei2, name, type, status,
			          location, description, purchase_date, owner_uid)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				  RETURNING id`
		err = tx.QueryRowContext(ctx, query,
			device.SerialNumber, nullIfEmpty(device.IMEI1), nullIfEmpty(device.IMEI2),
			device.Name, device.Type, models.DeviceStatusActive,
			device.Location, device.Description, device.PurchaseDate,
			device.OwnerUID).Scan(&newID)
		if err != nil {
			return translateIdentityConflict(err, device)
		}
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return 0, err
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// translateIdentityConflict переводит нарушение уникального индекса
// в DuplicateIdentityError с именем конфликтующего поля.
func translateIdentityConflict(err error, device models.Device) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "devices_serial_number_key":
		return &models.DuplicateIdentityError{Field: "serial_number", Value: device.SerialNumber}
	case "idx_devices_imei1":
		return &models.DuplicateIdentityError{Field: "imei1", Value: device.IMEI1}
	case "idx_devices_imei2":
		return &models.DuplicateIdentityError{Field: "imei2", Value: device.IMEI2}
	}
	return err
}

// isDomainErr сообщает, является ли ошибка доменной, то есть уже
// пригодной для показа клиенту без обёртки op.
func isDomainErr(err error) bool {
	var dup *models.DuplicateIdentityError
	return errors.Is(err, models.ErrQuotaExceeded) ||
		errors.Is(err, models.ErrUserNotFound) ||
		errors.Is(err, models.ErrDeviceNotFound) ||
		errors.Is(err, models.ErrTransferInProgress) ||
		errors.As(err, &dup)
}

// ListDevicesByOwner возвращает устройства пользователя, новые первыми.
func (s *Storage) ListDevicesByOwner(ctx context.Context, ownerUID string) ([]*models.Device, error) {
	const op = "storage.ListDevicesByOwner"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + deviceColumns + `
			  FROM devices
			  WHERE owner_uid = $1
			  ORDER BY created_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Device
	for rows.Next() {
		item, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListAllDevices возвращает все устройства с пагинацией (админский обзор).
func (s *Storage) ListAllDevices(ctx context.Context, limit, offset int) ([]*models.Device, error) {
	const op = "storage.ListAllDevices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + deviceColumns + `
			  FROM devices
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Device
	for rows.Next() {
		item, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetDevice возвращает устройство по его ID.
func (s *Storage) GetDevice(ctx context.Context, id int) (*models.Device, error) {
	const op = "storage.GetDevice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return device, nil
}

// FindDeviceByIdentity ищет устройство по серийному номеру или любому IMEI.
func (s *Storage) FindDeviceByIdentity(ctx context.Context, q string) (*models.Device, error) {
	const op = "storage.FindDeviceByIdentity"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+deviceColumns+`
		 FROM devices
		 WHERE serial_number = $1 OR imei1 = $1 OR imei2 = $1`, q)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return device, nil
}

// CountDevicesByOwner возвращает число устройств пользователя.
func (s *Storage) CountDevicesByOwner(ctx context.Context, ownerUID string) (int, error) {
	const op = "storage.CountDevicesByOwner"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE owner_uid = $1`, ownerUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// UpdateDeviceStatus меняет статус, местоположение и описание устройства,
// только если оно принадлежит ownerUID. Отсутствие строки не отличимо
// от чужого устройства: в обоих случаях models.ErrDeviceNotFound.
func (s *Storage) UpdateDeviceStatus(ctx context.Context, id int, ownerUID, status, location, description string) (*models.Device, error) {
	const op = "storage.UpdateDeviceStatus"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices
			  SET status = $1, location = $2, description = $3, updated_at = NOW()
			  WHERE id = $4 AND owner_uid = $5 AND status <> $6
			  RETURNING ` + deviceColumns
	row := s.DB.QueryRowContext(ctx, query,
		status, location, description, id, ownerUID, models.DeviceStatusTransferPending)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return device, nil
}

// UpdateDeviceStatusAdmin — административный вариант без проверки владельца.
func (s *Storage) UpdateDeviceStatusAdmin(ctx context.Context, id int, status, location, description string) (*models.Device, error) {
	const op = "storage.UpdateDeviceStatusAdmin"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices
			  SET status = $1, location = $2, description = $3, updated_at = NOW()
			  WHERE id = $4 AND status <> $5
			  RETURNING ` + deviceColumns
	row := s.DB.QueryRowContext(ctx, query,
		status, location, description, id, models.DeviceStatusTransferPending)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return device, nil
}

// scanner покрывает *sql.Row и *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (*models.Device, error) {
	var d models.Device
	var imei1, imei2, location, description sql.NullString
	var purchaseDate sql.NullTime
	if err := row.Scan(&d.ID, &d.SerialNumber, &imei1, &imei2, &d.Name, &d.Type,
		&d.Status, &location, &description, &purchaseDate, &d.OwnerUID,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.IMEI1 = imei1.String
	d.IMEI2 = imei2.String
	d.Location = location.String
	d.Description = description.String
	if purchaseDate.Valid {
		d.PurchaseDate = &purchaseDate.Time
	}
	return &d, nil
}

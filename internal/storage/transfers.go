package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aslanbekov/device-registry/internal/models"
)

const transferColumns = `id, serial_number, name, imei1, imei2, type,
	from_uid, to_uid, status, reason, transfer_date, created_at, updated_at`

// InitiateTransfer атомарно создаёт ожидающую запись в журнале передач
// и переводит устройство в статус transfer_pending. Обе записи либо
// фиксируются вместе, либо не фиксируются вовсе. Строка устройства
// блокируется FOR UPDATE, поэтому из двух конкурентных заявок на одно
// устройство ровно одна получает успех, вторая — ErrTransferInProgress.
func (s *Storage) InitiateTransfer(ctx context.Context, deviceID int, fromUID, toUID, reason string, resolveAt time.Time) (*models.Device, error) {
	const op = "storage.InitiateTransfer"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var device *models.Device
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+deviceColumns+` FROM devices WHERE id = $1 FOR UPDATE`, deviceID)
		d, err := scanDevice(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrDeviceNotFound
			}
			return err
		}
		if d.OwnerUID != fromUID {
			// Не раскрываем существование чужого устройства.
			return models.ErrDeviceNotFound
		}
		if d.Status == models.DeviceStatusTransferPending {
			return models.ErrTransferInProgress
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO transfer_records (serial_number, name, imei1, imei2, type,
			     from_uid, to_uid, status, reason, transfer_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			d.SerialNumber, d.Name, nullIfEmpty(d.IMEI1), nullIfEmpty(d.IMEI2), d.Type,
			fromUID, toUID, models.TransferStatusPending, reason, resolveAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return models.ErrTransferInProgress
			}
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE devices SET status = $1, updated_at = NOW() WHERE id = $2`,
			models.DeviceStatusTransferPending, d.ID)
		if err != nil {
			return err
		}

		d.Status = models.DeviceStatusTransferPending
		device = d
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return device, nil
}

// FindDueTransfersForSender возвращает по каждому серийному номеру только
// последнюю ожидающую запись, чьё время разрешения наступило. Более
// старые ожидающие записи того же устройства считаются вытесненными.
func (s *Storage) FindDueTransfersForSender(ctx context.Context, fromUID string, asOf time.Time) ([]*models.TransferRecord, error) {
	const op = "storage.FindDueTransfersForSender"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT DISTINCT ON (serial_number) ` + transferColumns + `
			  FROM transfer_records
			  WHERE from_uid = $1
			    AND status = $2
			    AND transfer_date <= $3
			  ORDER BY serial_number, transfer_date DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, fromUID, models.TransferStatusPending, asOf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TransferRecord
	for rows.Next() {
		item, err := scanTransfer(rows)
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

// FailDueTransfer помечает ожидающую запись как failed с причиной и
// возвращает устройство отправителю в статус active. Повторное
// разрешение уже разрешённой записи — no-op, не ошибка.
func (s *Storage) FailDueTransfer(ctx context.Context, recordID int, serialNumber, fromUID, reason string) error {
	const op = "storage.FailDueTransfer"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transfer_records
			 SET status = $1, reason = $2, updated_at = NOW()
			 WHERE id = $3 AND status = $4`,
			models.TransferStatusFailed, reason, recordID, models.TransferStatusPending)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Запись уже разрешена другим вызовом.
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE devices SET status = $1, updated_at = NOW()
			 WHERE serial_number = $2 AND owner_uid = $3 AND status = $4`,
			models.DeviceStatusActive, serialNumber, fromUID, models.DeviceStatusTransferPending)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ApproveDueTransfer завершает передачу: устройство, всё ещё принадлежащее
// отправителю и находящееся в статусе transfer_pending, переходит к
// получателю со статусом active; запись журнала помечается approved.
// Лимит устройств получателя перепроверяется внутри той же транзакции
// под блокировкой его строки: конкурентное создание устройства между
// вынесением вердикта и применением не протолкнёт получателя за квоту.
// Если устройство больше не доступно для передачи или лимит к этому
// моменту исчерпан, запись помечается failed. Повторное разрешение — no-op.
func (s *Storage) ApproveDueTransfer(ctx context.Context, recordID int, serialNumber, fromUID, toUID string, maxDevices int) error {
	const op = "storage.ApproveDueTransfer"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transfer_records
			 SET status = $1, updated_at = NOW()
			 WHERE id = $2 AND status = $3`,
			models.TransferStatusApproved, recordID, models.TransferStatusPending)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		var deviceID int
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM devices
			 WHERE serial_number = $1 AND owner_uid = $2 AND status = $3
			 FOR UPDATE`,
			serialNumber, fromUID, models.DeviceStatusTransferPending).Scan(&deviceID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				_, err = tx.ExecContext(ctx,
					`UPDATE transfer_records
					 SET status = $1, reason = $2, updated_at = NOW()
					 WHERE id = $3`,
					models.TransferStatusFailed, "Device no longer available for transfer", recordID)
				return err
			}
			return err
		}

		var recipientUID string
		err = tx.QueryRowContext(ctx,
			`SELECT uid FROM users WHERE uid = $1 FOR UPDATE`, toUID).Scan(&recipientUID)
		if err != nil {
			return err
		}
		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM devices WHERE owner_uid = $1`, toUID).Scan(&count)
		if err != nil {
			return err
		}
		if count >= maxDevices {
			_, err = tx.ExecContext(ctx,
				`UPDATE transfer_records
				 SET status = $1, reason = $2, updated_at = NOW()
				 WHERE id = $3`,
				models.TransferStatusFailed, "Recipient device limit reached", recordID)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE devices SET status = $1, updated_at = NOW() WHERE id = $2`,
				models.DeviceStatusActive, deviceID)
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE devices SET owner_uid = $1, status = $2, updated_at = NOW()
			 WHERE id = $3`,
			toUID, models.DeviceStatusActive, deviceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTransfersBySerial возвращает историю передач устройства, новые первыми.
func (s *Storage) ListTransfersBySerial(ctx context.Context, serialNumber string) ([]*models.TransferRecord, error) {
	const op = "storage.ListTransfersBySerial"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + transferColumns + `
			  FROM transfer_records
			  WHERE serial_number = $1
			  ORDER BY transfer_date DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, serialNumber)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TransferRecord
	for rows.Next() {
		item, err := scanTransfer(rows)
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

// ListAllTransfers возвращает записи журнала с фильтром по статусу и
// пагинацией, вместе с общим числом записей (админский обзор).
func (s *Storage) ListAllTransfers(ctx context.Context, status string, limit, offset int) ([]*models.TransferRecord, int, error) {
	const op = "storage.ListAllTransfers"
	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var total int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfer_records
		 WHERE ($1::text = '' OR status = $1)`, status).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + transferColumns + `
			  FROM transfer_records
			  WHERE ($1::text = '' OR status = $1)
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TransferRecord
	for rows.Next() {
		item, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

func scanTransfer(row scanner) (*models.TransferRecord, error) {
	var t models.TransferRecord
	var imei1, imei2, reason sql.NullString
	if err := row.Scan(&t.ID, &t.SerialNumber, &t.Name, &imei1, &imei2, &t.Type,
		&t.FromUID, &t.ToUID, &t.Status, &reason, &t.TransferDate,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.IMEI1 = imei1.String
	t.IMEI2 = imei2.String
	t.Reason = reason.String
	return &t, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aslanbekov/device-registry/internal/models"
)

const receiptColumns = `id, user_uid, plan_id, reference, amount, currency, status, created_at`

// ConfirmPayment атомарно записывает квитанцию и активирует подписку
// пользователя до activeTill. Повторное подтверждение той же ссылки
// отсекается уникальным индексом по reference.
func (s *Storage) ConfirmPayment(ctx context.Context, receipt models.Receipt, activeTill time.Time) error {
	const op = "storage.ConfirmPayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO receipts (user_uid, plan_id, reference, amount, currency, status)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			receipt.UserUID, receipt.PlanID, receipt.Reference,
			receipt.Amount, receipt.Currency, receipt.Status)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users
			 SET sub_active = TRUE, sub_active_till = $1, subscription_id = $2
			 WHERE uid = $3`,
			activeTill, receipt.PlanID, receipt.UserUID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return models.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListReceiptsByUser возвращает квитанции пользователя, новые первыми.
func (s *Storage) ListReceiptsByUser(ctx context.Context, userUID string) ([]*models.Receipt, error) {
	const op = "storage.ListReceiptsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+receiptColumns+`
		 FROM receipts
		 WHERE user_uid = $1
		 ORDER BY created_at DESC, id DESC`, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Receipt
	for rows.Next() {
		var r models.Receipt
		if err = rows.Scan(&r.ID, &r.UserUID, &r.PlanID, &r.Reference,
			&r.Amount, &r.Currency, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetReceiptByReference возвращает квитанцию по ссылке транзакции шлюза.
func (s *Storage) GetReceiptByReference(ctx context.Context, reference string) (*models.Receipt, error) {
	const op = "storage.GetReceiptByReference"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var r models.Receipt
	err := s.DB.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE reference = $1`, reference).
		Scan(&r.ID, &r.UserUID, &r.PlanID, &r.Reference,
			&r.Amount, &r.Currency, &r.Status, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &r, nil
}

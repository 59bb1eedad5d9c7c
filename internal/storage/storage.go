// Package storage реализует хранилище данных на основе PostgreSQL
// для реестра устройств, журнала передач, пользователей и тарифных планов.
// Все многошаговые мутации выполняются внутри одной транзакции:
// корректность при конкурентных запросах обеспечивается изоляцией
// транзакций и блокировками строк, без внутрипроцессных локов.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'devices'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table devices missing or query error: %w", err)
	}
	return nil
}

// inTx выполняет fn внутри транзакции: коммит при nil, откат при ошибке.
func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// nullIfEmpty отображает пустую строку в NULL: разреженная уникальность
// IMEI не должна давать ложных коллизий на отсутствующих значениях.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

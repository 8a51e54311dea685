// Package postgres реализует хранилище журнала команд на PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/x-research-team/dtx-mediator/bus/journal"
)

const (
	// seq задает порядок вставки: записи одного перехода могут иметь
	// одинаковое created_at.
	createTableQuery = `
CREATE TABLE IF NOT EXISTS command_journal (
    seq BIGSERIAL PRIMARY KEY,
    id UUID NOT NULL UNIQUE,
    action VARCHAR(32) NOT NULL,
    request_type VARCHAR(255) NOT NULL,
    status VARCHAR(32) NOT NULL,
    payload JSONB,
    created_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE command_journal ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
`

	insertEntryQuery = `
INSERT INTO command_journal (id, action, request_type, status, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`

	// Последние $1 записей, возвращаемые в порядке вставки.
	listEntriesQuery = `
SELECT id, action, request_type, status, payload, created_at
FROM (
    SELECT seq, id, action, request_type, status, payload, created_at
    FROM command_journal
    ORDER BY seq DESC
    LIMIT $1
) AS recent
ORDER BY seq;
`
)

// Storage - хранилище журнала в PostgreSQL.
type Storage struct {
	q Querier
}

var _ journal.Storage = (*Storage)(nil)

// NewStorage создает хранилище и таблицу журнала, если она не существует.
func NewStorage(ctx context.Context, pool *pgxpool.Pool) (*Storage, error) {
	return NewStorageWithQuerier(ctx, pool)
}

// NewStorageWithQuerier создает хранилище поверх произвольного Querier,
// например транзакции.
func NewStorageWithQuerier(ctx context.Context, q Querier) (*Storage, error) {
	if _, err := q.Exec(ctx, createTableQuery); err != nil {
		return nil, fmt.Errorf("не удалось создать таблицу command_journal: %w", err)
	}
	return &Storage{q: q}, nil
}

// Save сохраняет запись журнала.
func (s *Storage) Save(ctx context.Context, entry *journal.Entry) error {
	_, err := s.q.Exec(ctx, insertEntryQuery,
		entry.ID,
		entry.Action,
		entry.RequestType,
		entry.Status,
		entry.Payload,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("не удалось сохранить запись журнала: %w", err)
	}
	return nil
}

// List возвращает последние записи журнала в порядке создания.
func (s *Storage) List(ctx context.Context, limit int) ([]*journal.Entry, error) {
	var pgLimit any
	if limit > 0 {
		pgLimit = limit
	}

	rows, err := s.q.Query(ctx, listEntriesQuery, pgLimit)
	if err != nil {
		return nil, fmt.Errorf("не удалось извлечь записи журнала: %w", err)
	}
	defer rows.Close()

	entries := make([]*journal.Entry, 0)
	for rows.Next() {
		var e journal.Entry
		if err := rows.Scan(
			&e.ID,
			&e.Action,
			&e.RequestType,
			&e.Status,
			&e.Payload,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("не удалось сканировать запись журнала: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по записям журнала: %w", err)
	}

	return entries, nil
}

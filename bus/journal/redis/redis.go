// Package redis реализует хранилище журнала команд на Redis.
// Записи хранятся в списке, новые добавляются в конец.
package redis

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	backend "github.com/redis/go-redis/v9"

	"github.com/x-research-team/dtx-mediator/bus/journal"
)

// Storage - хранилище журнала в Redis.
type Storage struct {
	client *backend.Client
	key    string
	maxLen int64
}

var _ journal.Storage = (*Storage)(nil)

// Option настраивает Storage.
type Option func(*Storage)

// WithKey задает ключ списка журнала.
func WithKey(key string) Option {
	return func(s *Storage) {
		s.key = key
	}
}

// WithMaxLen ограничивает длину журнала. Старые записи обрезаются при сохранении.
func WithMaxLen(n int64) Option {
	return func(s *Storage) {
		s.maxLen = n
	}
}

// NewFromClient создает хранилище из существующего клиента.
func NewFromClient(client *backend.Client, opts ...Option) *Storage {
	s := &Storage{
		client: client,
		key:    "mediator:journal",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save добавляет запись в конец журнала.
func (s *Storage) Save(ctx context.Context, entry *journal.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать запись журнала: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.key, -s.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("не удалось сохранить запись журнала в redis: %w", err)
	}
	return nil
}

// List возвращает последние записи журнала в порядке создания.
func (s *Storage) List(ctx context.Context, limit int) ([]*journal.Entry, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	values, err := s.client.LRange(ctx, s.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать журнал из redis: %w", err)
	}

	entries := make([]*journal.Entry, 0, len(values))
	for _, v := range values {
		var e journal.Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("не удалось десериализовать запись журнала: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

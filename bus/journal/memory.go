package journal

import (
	"context"
	"sync"
)

// MemoryStorage хранит записи журнала в памяти процесса.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryStorage создает пустое хранилище в памяти.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Save добавляет запись в конец журнала.
func (s *MemoryStorage) Save(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

// List возвращает последние записи в порядке их создания.
func (s *MemoryStorage) List(_ context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(s.entries) {
		start = len(s.entries) - limit
	}
	out := make([]*Entry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out, nil
}

// Package history реализует две ограниченные упорядоченные коллекции -
// историю выполненных команд и стек повтора - с вытеснением самых старых
// элементов при переполнении.
package history

import (
	"fmt"
	"slices"
	"sync"

	"github.com/x-research-team/dtx-mediator/bus/request"
)

// Option настраивает Manager.
type Option[T comparable] func(*Manager[T])

// WithEvictHandler задает функцию, вызываемую для элемента, вытесненного из
// истории при переполнении.
func WithEvictHandler[T comparable](fn func(T)) Option[T] {
	return func(m *Manager[T]) {
		m.onEvict = fn
	}
}

// WithDiscardHandler задает функцию, вызываемую для элементов стека повтора,
// отброшенных при записи новой команды или при его переполнении.
func WithDiscardHandler[T comparable](fn func(T)) Option[T] {
	return func(m *Manager[T]) {
		m.onDiscard = fn
	}
}

// Manager хранит историю размером не более historySize и стек повтора
// размером не более redoSize. Элемент находится не более чем в одной из
// коллекций. Все операции потокобезопасны; обратные вызовы выполняются
// после освобождения блокировки.
type Manager[T comparable] struct {
	mu          sync.Mutex
	history     []T
	redo        []T
	historySize int
	redoSize    int
	onEvict     func(T)
	onDiscard   func(T)
}

// New создает менеджер истории. Оба размера должны быть положительными.
func New[T comparable](historySize, redoSize int, opts ...Option[T]) (*Manager[T], error) {
	if historySize <= 0 {
		return nil, fmt.Errorf("размер истории команд должен быть положительным, получено %d: %w", historySize, request.ErrInvalidConfig)
	}
	if redoSize <= 0 {
		return nil, fmt.Errorf("размер стека повтора должен быть положительным, получено %d: %w", redoSize, request.ErrInvalidConfig)
	}

	m := &Manager[T]{
		history:     make([]T, 0, historySize),
		redo:        make([]T, 0, redoSize),
		historySize: historySize,
		redoSize:    redoSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Record добавляет элемент в историю, вытесняя самый старый при
// переполнении, и полностью очищает стек повтора. Элемент, уже находящийся
// в истории или стеке повтора, не добавляется: возвращается
// request.ErrAlreadyRecorded.
func (m *Manager[T]) Record(item T) error {
	m.mu.Lock()
	if m.contains(item) {
		m.mu.Unlock()
		return request.ErrAlreadyRecorded
	}
	evicted, hasEvicted := m.appendHistory(item)
	discarded := m.redo
	m.redo = make([]T, 0, m.redoSize)
	m.mu.Unlock()

	if hasEvicted {
		m.evicted(evicted)
	}
	for i := len(discarded) - 1; i >= 0; i-- {
		m.discarded(discarded[i])
	}
	return nil
}

// Contains сообщает, находится ли элемент в истории или в стеке повтора.
func (m *Manager[T]) Contains(item T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contains(item)
}

// PopNewestFromHistory извлекает последний элемент истории.
func (m *Manager[T]) PopNewestFromHistory() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pop(&m.history)
}

// PushToRedo помещает элемент на вершину стека повтора, вытесняя самый
// старый элемент стека при переполнении.
func (m *Manager[T]) PushToRedo(item T) {
	m.mu.Lock()
	dropped, hasDropped := m.pushRedo(item)
	m.mu.Unlock()

	if hasDropped {
		m.discarded(dropped)
	}
}

// PopNewestFromRedo извлекает вершину стека повтора.
func (m *Manager[T]) PopNewestFromRedo() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pop(&m.redo)
}

// MoveNewestRedoBackToHistory переносит вершину стека повтора в историю,
// не очищая стек повтора.
func (m *Manager[T]) MoveNewestRedoBackToHistory() (T, bool) {
	m.mu.Lock()
	item, ok := pop(&m.redo)
	if !ok {
		m.mu.Unlock()
		return item, false
	}
	evicted, hasEvicted := m.appendHistory(item)
	m.mu.Unlock()

	if hasEvicted {
		m.evicted(evicted)
	}
	return item, true
}

// PeekNewest возвращает последний элемент истории, не извлекая его.
func (m *Manager[T]) PeekNewest() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return peek(m.history)
}

// PeekNewestRedo возвращает вершину стека повтора, не извлекая ее.
func (m *Manager[T]) PeekNewestRedo() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return peek(m.redo)
}

// CommitUndo переносит item из истории в стек повтора, если он все еще
// является последним элементом истории. Иначе состояние не меняется.
func (m *Manager[T]) CommitUndo(item T) error {
	m.mu.Lock()
	newest, ok := peek(m.history)
	if !ok || newest != item {
		m.mu.Unlock()
		return request.ErrHistoryChanged
	}
	pop(&m.history)
	dropped, hasDropped := m.pushRedo(item)
	m.mu.Unlock()

	if hasDropped {
		m.discarded(dropped)
	}
	return nil
}

// CommitRedo переносит item из стека повтора в историю, если он все еще
// находится на вершине стека. Стек повтора при этом не очищается.
func (m *Manager[T]) CommitRedo(item T) error {
	m.mu.Lock()
	newest, ok := peek(m.redo)
	if !ok || newest != item {
		m.mu.Unlock()
		return request.ErrHistoryChanged
	}
	pop(&m.redo)
	evicted, hasEvicted := m.appendHistory(item)
	m.mu.Unlock()

	if hasEvicted {
		m.evicted(evicted)
	}
	return nil
}

// Len возвращает текущую длину истории.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// RedoLen возвращает текущую длину стека повтора.
func (m *Manager[T]) RedoLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo)
}

// Snapshot возвращает копию истории от самого старого элемента к новому.
func (m *Manager[T]) Snapshot() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.history))
	copy(out, m.history)
	return out
}

// RedoSnapshot возвращает копию стека повтора от самого старого элемента
// к вершине.
func (m *Manager[T]) RedoSnapshot() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.redo))
	copy(out, m.redo)
	return out
}

// contains вызывается под блокировкой.
func (m *Manager[T]) contains(item T) bool {
	return slices.Contains(m.history, item) || slices.Contains(m.redo, item)
}

// appendHistory вызывается под блокировкой.
func (m *Manager[T]) appendHistory(item T) (evicted T, ok bool) {
	if len(m.history) == m.historySize {
		evicted, ok = m.history[0], true
		m.history = append(m.history[:0], m.history[1:]...)
	}
	m.history = append(m.history, item)
	return evicted, ok
}

// pushRedo вызывается под блокировкой.
func (m *Manager[T]) pushRedo(item T) (dropped T, ok bool) {
	if len(m.redo) == m.redoSize {
		dropped, ok = m.redo[0], true
		m.redo = append(m.redo[:0], m.redo[1:]...)
	}
	m.redo = append(m.redo, item)
	return dropped, ok
}

func (m *Manager[T]) evicted(item T) {
	if m.onEvict != nil {
		m.onEvict(item)
	}
}

func (m *Manager[T]) discarded(item T) {
	if m.onDiscard != nil {
		m.onDiscard(item)
	}
}

func pop[T any](s *[]T) (T, bool) {
	var zero T
	n := len(*s)
	if n == 0 {
		return zero, false
	}
	item := (*s)[n-1]
	(*s)[n-1] = zero
	*s = (*s)[:n-1]
	return item, true
}

func peek[T any](s []T) (T, bool) {
	var zero T
	if len(s) == 0 {
		return zero, false
	}
	return s[len(s)-1], true
}

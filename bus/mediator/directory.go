package mediator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/x-research-team/dtx-mediator/bus/command"
	"github.com/x-research-team/dtx-mediator/bus/query"
	"github.com/x-research-team/dtx-mediator/bus/request"
)

// Kind различает команды и запросы.
type Kind int

const (
	// KindCommand - команда с побочным эффектом.
	KindCommand Kind = iota
	// KindQuery - запрос на чтение.
	KindQuery
)

// String возвращает текстовое представление вида запроса.
func (k Kind) String() string {
	if k == KindQuery {
		return "query"
	}
	return "command"
}

// Entry - зарегистрированный обработчик вместе с типостираемыми операциями
// Undo и Redo, которые медиатор вызывает для команд из истории.
type Entry interface {
	// Key возвращает ключ, под которым зарегистрирован обработчик.
	Key() request.Key
	// Kind возвращает вид обслуживаемых запросов.
	Kind() Kind
	// Handler возвращает типизированный обработчик.
	Handler() any
	// Undo приводит cmd к типу обработчика и отменяет ее.
	Undo(ctx context.Context, cmd command.Command) error
	// Redo приводит cmd к типу обработчика и повторяет ее.
	Redo(ctx context.Context, cmd command.Command) error
}

// Directory - внешний источник обработчиков. Медиатор только ищет в нем
// обработчик и никогда не создает и не кеширует обработчики сам.
type Directory interface {
	// Resolve возвращает обработчик для ключа или ошибку, оборачивающую
	// request.ErrMissingHandler.
	Resolve(key request.Key) (Entry, error)
}

// commandEntry связывает обработчик команды с типостираемыми операциями.
type commandEntry[C command.Of[R], R any] struct {
	key     request.Key
	handler command.Handler[C, R]
}

// NewCommandEntry оборачивает обработчик команды для хранения в Directory.
func NewCommandEntry[C command.Of[R], R any](handler command.Handler[C, R]) Entry {
	return &commandEntry[C, R]{
		key:     request.KeyOf[C, R](),
		handler: handler,
	}
}

func (e *commandEntry[C, R]) Key() request.Key { return e.key }
func (e *commandEntry[C, R]) Kind() Kind       { return KindCommand }
func (e *commandEntry[C, R]) Handler() any     { return e.handler }

func (e *commandEntry[C, R]) Undo(ctx context.Context, cmd command.Command) error {
	typed, ok := cmd.(C)
	if !ok {
		return request.TypeMismatch(e.key.Request.String(), cmd)
	}
	return e.handler.Undo(ctx, typed)
}

func (e *commandEntry[C, R]) Redo(ctx context.Context, cmd command.Command) error {
	typed, ok := cmd.(C)
	if !ok {
		return request.TypeMismatch(e.key.Request.String(), cmd)
	}
	return e.handler.Redo(ctx, typed)
}

// queryEntry хранит обработчик запроса. Запросы не поддерживают отмену.
type queryEntry[Q query.Of[R], R any] struct {
	key     request.Key
	handler query.Handler[Q, R]
}

// NewQueryEntry оборачивает обработчик запроса для хранения в Directory.
func NewQueryEntry[Q query.Of[R], R any](handler query.Handler[Q, R]) Entry {
	return &queryEntry[Q, R]{
		key:     request.KeyOf[Q, R](),
		handler: handler,
	}
}

func (e *queryEntry[Q, R]) Key() request.Key { return e.key }
func (e *queryEntry[Q, R]) Kind() Kind       { return KindQuery }
func (e *queryEntry[Q, R]) Handler() any     { return e.handler }

func (e *queryEntry[Q, R]) Undo(_ context.Context, cmd command.Command) error {
	return request.TypeMismatch("command", cmd)
}

func (e *queryEntry[Q, R]) Redo(_ context.Context, cmd command.Command) error {
	return request.TypeMismatch("command", cmd)
}

// Registry - потокобезопасная реализация Directory, которую заполняют
// явными вызовами регистрации при старте приложения.
type Registry struct {
	entries map[request.Key]Entry
	mu      sync.RWMutex
}

// NewRegistry создает пустой реестр обработчиков.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[request.Key]Entry),
	}
}

// Resolve возвращает обработчик для ключа.
func (r *Registry) Resolve(key request.Key) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[key]
	if !ok {
		return nil, request.MissingHandler(key)
	}
	return entry, nil
}

// Add регистрирует готовую запись. Повторная регистрация ключа - ошибка.
func (r *Registry) Add(entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entry.Key()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("обработчик для '%s': %w", key, request.ErrHandlerAlreadyRegistered)
	}
	r.entries[key] = entry
	return nil
}

// Keys возвращает ключи всех зарегистрированных обработчиков.
func (r *Registry) Keys() []request.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]request.Key, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// RegisterCommand регистрирует обработчик команды C.
func RegisterCommand[C command.Of[R], R any](r *Registry, handler command.Handler[C, R]) error {
	return r.Add(NewCommandEntry[C, R](handler))
}

// RegisterQuery регистрирует обработчик запроса Q.
func RegisterQuery[Q query.Of[R], R any](r *Registry, handler query.Handler[Q, R]) error {
	return r.Add(NewQueryEntry[Q, R](handler))
}

// RegisterQueryFunc регистрирует функцию как обработчик запроса Q.
func RegisterQueryFunc[Q query.Of[R], R any](r *Registry, fn func(ctx context.Context, q Q) (request.Response[R], error)) error {
	return RegisterQuery[Q, R](r, query.HandlerFunc[Q, R](fn))
}

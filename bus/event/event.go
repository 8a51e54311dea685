// Package event реализует типобезопасную внутрипроцессную шину событий.
// Медиатор публикует в нее уведомления о жизненном цикле команд, а
// подписчики (например, журнал) обрабатывают их синхронно или в пуле воркеров.
package event

import (
	"context"
	"errors"
)

// ErrBusClosed возвращается при публикации в остановленную шину.
var ErrBusClosed = errors.New("шина событий остановлена")

// Event определяет минимальный контракт для любого события, которое может быть
// передано через шину.
type Event interface {
	// Topic возвращает имя топика, к которому относится событие.
	Topic() string
}

// Handler - функция-обработчик события типа T.
type Handler[T Event] func(ctx context.Context, event T) error

// ErrorHandler - функция для обработки ошибок, возникших в Handler.
type ErrorHandler[T Event] func(err error, event T)

// Middleware - функция-декоратор для Handler.
type Middleware[T Event] func(next Handler[T]) Handler[T]

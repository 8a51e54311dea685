package event

import (
	"log/slog"
)

// config содержит неэкспортируемую конфигурацию шины событий.
type config struct {
	logger    *slog.Logger
	workers   int
	queueSize int
}

// Option определяет тип для функциональных опций шины.
type Option func(*config)

// WithLogger устанавливает логгер для шины событий.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithWorkerPool настраивает пул воркеров для асинхронных подписчиков.
// Неположительные значения заменяются значениями по умолчанию.
func WithWorkerPool(workers, queueSize int) Option {
	return func(c *config) {
		c.workers = workers
		c.queueSize = queueSize
	}
}

// subscriptionOptions определяет параметры конкретной подписки.
type subscriptionOptions[T Event] struct {
	name         string
	isAsync      bool
	errorHandler ErrorHandler[T]
	middleware   []Middleware[T]
}

// SubscribeOption - функциональная опция для настройки подписки.
type SubscribeOption[T Event] func(*subscriptionOptions[T])

// WithAsync включает асинхронную обработку через пул воркеров.
func WithAsync[T Event]() SubscribeOption[T] {
	return func(o *subscriptionOptions[T]) {
		o.isAsync = true
	}
}

// WithErrorHandler задает пользовательский обработчик ошибок подписчика.
func WithErrorHandler[T Event](handler ErrorHandler[T]) SubscribeOption[T] {
	return func(o *subscriptionOptions[T]) {
		o.errorHandler = handler
	}
}

// WithMiddleware добавляет middleware, которые применяются только к данной подписке.
// Middleware выполняются в порядке их добавления.
func WithMiddleware[T Event](mw ...Middleware[T]) SubscribeOption[T] {
	return func(o *subscriptionOptions[T]) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithName задает имя подписчика для логов.
func WithName[T Event](name string) SubscribeOption[T] {
	return func(o *subscriptionOptions[T]) {
		o.name = name
	}
}

package mediator

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/dtx-mediator/bus/event"
)

// options содержит неэкспортируемую конфигурацию медиатора.
type options struct {
	cfg            Config
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	middlewares    []Middleware
	notifications  event.IBus[Notification]
}

// Option определяет тип для функциональных опций медиатора.
type Option func(*options)

// WithConfig задает конфигурацию целиком.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithHistorySize задает максимальный размер истории команд.
func WithHistorySize(size int) Option {
	return func(o *options) {
		o.cfg.CommandHistoryMaxSize = size
	}
}

// WithRedoSize задает максимальный размер стека повтора.
func WithRedoSize(size int) Option {
	return func(o *options) {
		o.cfg.RedoHistoryMaxSize = size
	}
}

// WithStrictHandlers включает строгую проверку обработчиков в CheckHandlers.
func WithStrictHandlers(strict bool) Option {
	return func(o *options) {
		o.cfg.StrictHandlers = strict
	}
}

// WithLogger устанавливает логгер. nil отключает логирование.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider устанавливает провайдер трассировки.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = provider
	}
}

// WithMeterProvider устанавливает провайдер метрик.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = provider
	}
}

// WithPropagator устанавливает механизм распространения контекста трассировки.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.propagator = propagator
	}
}

// WithMiddleware добавляет пользовательские middleware после стандартных.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mw...)
	}
}

// WithNotifications задает шину, в которую публикуются уведомления об
// изменениях истории. Владельцем шины остается вызывающий код.
func WithNotifications(bus event.IBus[Notification]) Option {
	return func(o *options) {
		o.notifications = bus
	}
}

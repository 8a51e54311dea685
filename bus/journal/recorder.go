package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/x-research-team/dtx-mediator/bus/event"
	"github.com/x-research-team/dtx-mediator/bus/mediator"
)

// Option определяет функцию для конфигурации подписки журнала.
type Option func(*options)

type options struct {
	logger *slog.Logger
	async  bool
}

// WithLogger устанавливает логгер для ошибок записи.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAsync переносит запись в журнал в пул воркеров шины.
func WithAsync() Option {
	return func(o *options) {
		o.async = true
	}
}

// Record сохраняет уведомление в хранилище.
func Record(ctx context.Context, storage Storage, n mediator.Notification) error {
	entry, err := NewEntry(n)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать команду %s: %w", n.RequestType, err)
	}
	if err := storage.Save(ctx, entry); err != nil {
		return fmt.Errorf("не удалось сохранить запись журнала: %w", err)
	}
	return nil
}

// Subscribe подписывает хранилище на уведомления медиатора.
// Ошибки записи логируются и не влияют на медиатор.
func Subscribe(bus event.IBus[mediator.Notification], storage Storage, opts ...Option) (unsubscribe func(), err error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	subOpts := []event.SubscribeOption[mediator.Notification]{
		event.WithName[mediator.Notification]("journal"),
		event.WithErrorHandler[mediator.Notification](func(err error, n mediator.Notification) {
			o.logger.Error("ошибка записи в журнал",
				slog.String("action", string(n.Action)),
				slog.String("request_type", n.RequestType),
				slog.Any("error", err),
			)
		}),
	}
	if o.async {
		subOpts = append(subOpts, event.WithAsync[mediator.Notification]())
	}

	return bus.Subscribe(func(ctx context.Context, n mediator.Notification) error {
		return Record(ctx, storage, n)
	}, subOpts...)
}

package event

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 100
)

// IBus определяет строго типизированный интерфейс для публикации и подписки
// на события конкретного типа T.
type IBus[T Event] interface {
	// Publish публикует событие типа T в шину.
	Publish(ctx context.Context, event T) error

	// Subscribe подписывает обработчик на события типа T.
	// Возвращает функцию для отписки.
	Subscribe(handler Handler[T], opts ...SubscribeOption[T]) (unsubscribe func(), err error)

	// Shutdown дожидается завершения асинхронных обработчиков и останавливает шину.
	Shutdown(ctx context.Context) error
}

// NewBus создает новый экземпляр шины для типа события T и топика.
func NewBus[T Event](topic string, opts ...Option) (IBus[T], error) {
	if topic == "" {
		return nil, fmt.Errorf("topic не может быть пустым")
	}

	cfg := &config{
		logger:    slog.Default(),
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = defaultWorkers
	}
	if cfg.queueSize <= 0 {
		cfg.queueSize = defaultQueueSize
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return newLocalProvider[T](topic, cfg), nil
}

package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/goccy/go-reflect"
	"github.com/google/uuid"
)

// subscription хранит обработчик и примененные к нему опции.
type subscription[T Event] struct {
	id           string
	name         string
	handler      Handler[T]
	isAsync      bool
	errorHandler ErrorHandler[T]
}

// localProvider обрабатывает события внутри процесса.
type localProvider[T Event] struct {
	topic       string
	logger      *slog.Logger
	mu          sync.RWMutex
	subscribers []*subscription[T]
	pool        *workerPool[T]
}

func newLocalProvider[T Event](topic string, cfg *config) *localProvider[T] {
	p := &localProvider[T]{
		topic:  topic,
		logger: cfg.logger,
	}
	p.pool = newWorkerPool(cfg.workers, cfg.queueSize, func(t task[T]) {
		p.handle(t.ctx, t.event, t.sub)
	})
	return p
}

// Publish доставляет событие всем подписчикам. Синхронные подписчики
// вызываются в порядке подписки до возврата из Publish.
func (p *localProvider[T]) Publish(ctx context.Context, event T) error {
	if topic := event.Topic(); topic != p.topic {
		return fmt.Errorf("событие топика '%s' не может быть опубликовано в шину '%s'", topic, p.topic)
	}

	p.mu.RLock()
	subs := make([]*subscription[T], len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	for _, sub := range subs {
		if !sub.isAsync {
			p.handle(ctx, event, sub)
			continue
		}
		if err := p.pool.submit(ctx, task[T]{ctx: context.WithoutCancel(ctx), event: event, sub: sub}); err != nil {
			return fmt.Errorf("не удалось отправить асинхронную задачу в пул: %w", err)
		}
	}
	return nil
}

// Subscribe подписывает обработчик на события топика.
func (p *localProvider[T]) Subscribe(handler Handler[T], opts ...SubscribeOption[T]) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("обработчик не может быть nil")
	}

	subOpts := subscriptionOptions[T]{}
	for _, opt := range opts {
		opt(&subOpts)
	}

	final := handler
	for i := len(subOpts.middleware) - 1; i >= 0; i-- {
		final = subOpts.middleware[i](final)
	}

	name := subOpts.name
	if name == "" {
		name = handlerName(handler)
	}

	sub := &subscription[T]{
		id:           uuid.NewString(),
		name:         name,
		handler:      final,
		isAsync:      subOpts.isAsync,
		errorHandler: subOpts.errorHandler,
	}

	p.mu.Lock()
	p.subscribers = append(p.subscribers, sub)
	p.mu.Unlock()

	p.logger.Debug("подписка на события", slog.String("topic", p.topic), slog.String("handler_name", name))

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subscribers {
			if s.id == sub.id {
				p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
				break
			}
		}
	}, nil
}

// Shutdown дожидается завершения асинхронных обработчиков.
func (p *localProvider[T]) Shutdown(ctx context.Context) error {
	return p.pool.stop(ctx)
}

func (p *localProvider[T]) handle(ctx context.Context, event T, sub *subscription[T]) {
	err := sub.handler(ctx, event)
	if err == nil {
		return
	}
	if sub.errorHandler != nil {
		sub.errorHandler(err, event)
		return
	}
	p.logger.Error("ошибка обработки события",
		slog.String("topic", p.topic),
		slog.String("handler_name", sub.name),
		slog.Any("error", err),
	)
}

// handlerName извлекает имя функции-обработчика.
func handlerName(handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() == reflect.Func {
		if pc := v.Pointer(); pc != 0 {
			if f := runtime.FuncForPC(pc); f != nil {
				return f.Name()
			}
		}
	}
	return reflect.TypeOf(handler).String()
}

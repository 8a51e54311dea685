package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Тестовые события ---

type CommandExecutedEvent struct {
	Name string
}

func (CommandExecutedEvent) Topic() string { return "command.executed" }

type CommandUndoneEvent struct {
	Name string
}

func (CommandUndoneEvent) Topic() string { return "command.undone" }

// --- Тесты ---

func TestNewBus_EmptyTopic(t *testing.T) {
	t.Parallel()

	_, err := NewBus[CommandExecutedEvent]("")
	require.Error(t, err)
}

func TestBus_PublishSubscribe_Sync(t *testing.T) {
	t.Parallel()

	bus, err := NewBus[CommandExecutedEvent]("command.executed")
	require.NoError(t, err)

	var received []string
	unsubscribe, err := bus.Subscribe(func(ctx context.Context, e CommandExecutedEvent) error {
		received = append(received, e.Name)
		return nil
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), CommandExecutedEvent{Name: "first"}))
	require.NoError(t, bus.Publish(context.Background(), CommandExecutedEvent{Name: "second"}))

	assert.Equal(t, []string{"first", "second"}, received, "синхронный подписчик вызывается до возврата из Publish")
}

func TestBus_PublishSubscribe_Async(t *testing.T) {
	t.Parallel()

	bus, err := NewBus[CommandUndoneEvent]("command.undone", WithWorkerPool(2, 8))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)

	var receivedEvent CommandUndoneEvent
	_, err = bus.Subscribe(func(ctx context.Context, e CommandUndoneEvent) error {
		receivedEvent = e
		wg.Done()
		return nil
	}, WithAsync[CommandUndoneEvent]())
	require.NoError(t, err)

	event := CommandUndoneEvent{Name: "async"}
	require.NoError(t, bus.Publish(context.Background(), event))

	wg.Wait()
	assert.Equal(t, event, receivedEvent)
}

func TestBus_WrongTopic(t *testing.T) {
	t.Parallel()

	bus, err := NewBus[CommandExecutedEvent]("other.topic")
	require.NoError(t, err)

	err = bus.Publish(context.Background(), CommandExecutedEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "не может быть опубликовано")
}

func TestBus_Middleware(t *testing.T) {
	t.Parallel()

	bus, err := NewBus[CommandExecutedEvent]("command.executed")
	require.NoError(t, err)

	var order []string
	mw := func(name string) Middleware[CommandExecutedEvent] {
		return func(next Handler[CommandExecutedEvent]) Handler[CommandExecutedEvent] {
			return func(ctx context.Context, e CommandExecutedEvent) error {
				order = append(order, name)
				return next(ctx, e)
			}
		}
	}

	_, err = bus.Subscribe(func(ctx context.Context, e CommandExecutedEvent) error {
		order = append(order, "handler")
		return nil
	}, WithMiddleware(mw("mw1"), mw("mw2")))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), CommandExecutedEvent{}))
	assert.Equal(t, []string{"mw1", "mw2", "handler"}, order, "middleware выполняются в порядке добавления")
}

func TestBus_ErrorHandler(t *testing.T) {
	t.Parallel()

	bus, err := NewBus[CommandExecutedEvent]("command.executed")
	require.NoError(t, err)

	handlerErr := fmt.Errorf("ошибка в обработчике")
	var receivedErr error
	var receivedEvent CommandExecutedEvent

	_, err = bus.Subscribe(
		func(ctx context.Context, e CommandExecutedEvent) error { return handlerErr },
		WithErrorHandler(func(err error, e CommandExecutedEvent) {
			receivedErr = err
			receivedEvent = e
		}),
	)
	require.NoError(t, err)

	event := CommandExecutedEvent{Name: "broken"}
	require.NoError(t, bus.Publish(context.Background(), event))

	assert.Equal(t, handlerErr, receivedErr, "обработчик ошибок должен получить правильную ошибку")
	assert.Equal(t, event, receivedEvent, "обработчик ошибок должен получить правильное событие")
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus, err := NewBus[CommandExecutedEvent]("command.executed")
	require.NoError(t, err)

	var calls int
	unsubscribe, err := bus.Subscribe(func(ctx context.Context, e CommandExecutedEvent) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), CommandExecutedEvent{}))
	unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), CommandExecutedEvent{}))

	assert.Equal(t, 1, calls)
}

func TestBus_Shutdown(t *testing.T) {
	t.Parallel()

	bus, err := NewBus[CommandExecutedEvent]("command.executed", WithWorkerPool(1, 16))
	require.NoError(t, err)

	var handled atomic.Int32
	_, err = bus.Subscribe(func(ctx context.Context, e CommandExecutedEvent) error {
		handled.Add(1)
		return nil
	}, WithAsync[CommandExecutedEvent]())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), CommandExecutedEvent{}))
	}

	require.NoError(t, bus.Shutdown(context.Background()))
	assert.Equal(t, int32(10), handled.Load(), "Shutdown должен дождаться всех принятых задач")

	err = bus.Publish(context.Background(), CommandExecutedEvent{})
	assert.ErrorIs(t, err, ErrBusClosed)
}

// --- Тесты производительности ---

func benchmarkPublish(b *testing.B, numSubscribers int, async bool) {
	bus, err := NewBus[CommandExecutedEvent]("command.executed")
	if err != nil {
		b.Fatalf("не удалось создать шину: %v", err)
	}
	defer func() { _ = bus.Shutdown(context.Background()) }()

	var opts []SubscribeOption[CommandExecutedEvent]
	if async {
		opts = append(opts, WithAsync[CommandExecutedEvent]())
	}

	for i := 0; i < numSubscribers; i++ {
		finalOpts := append(opts, WithName[CommandExecutedEvent](fmt.Sprintf("subscriber-%d", i)))
		unsubscribe, err := bus.Subscribe(func(ctx context.Context, e CommandExecutedEvent) error {
			return nil
		}, finalOpts...)
		if err != nil {
			b.Fatalf("не удалось подписаться: %v", err)
		}
		defer unsubscribe()
	}

	var event CommandExecutedEvent

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := bus.Publish(context.Background(), event); err != nil {
				b.Errorf("ошибка публикации: %v", err)
			}
		}
	})
}

func BenchmarkPublish_Sync_OneSubscriber(b *testing.B) {
	benchmarkPublish(b, 1, false)
}

func BenchmarkPublish_Sync_MultipleSubscribers(b *testing.B) {
	benchmarkPublish(b, 100, false)
}

func BenchmarkPublish_Async_OneSubscriber(b *testing.B) {
	benchmarkPublish(b, 1, true)
}

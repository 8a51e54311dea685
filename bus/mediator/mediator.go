// Package mediator направляет команды и запросы единственному
// зарегистрированному обработчику и ведет ограниченную историю выполненных
// команд с поддержкой отмены и повтора, включая составные команды.
package mediator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/x-research-team/dtx-mediator/bus/command"
	"github.com/x-research-team/dtx-mediator/bus/history"
	"github.com/x-research-team/dtx-mediator/bus/query"
	"github.com/x-research-team/dtx-mediator/bus/request"
)

// Mediator разрешает обработчики через Directory, вызывает их через цепочку
// middleware и управляет историей команд.
//
// Обработчики Undo/Redo не должны вызывать UndoLast или RedoLastUndone:
// эти операции сериализованы. Выполнять команды с сохранением в историю из
// Undo/Redo тоже нельзя, такой вызов Execute возвращает
// request.ErrRetainDuringUndo. Подписчики уведомлений вызываются вне
// блокировки и могут обращаться к медиатору.
type Mediator struct {
	directory    Directory
	invoker      Invoker
	history      *history.Manager[command.Command]
	opts         *options
	logger       *slog.Logger
	opMu         sync.Mutex
	registration metric.Registration

	pendingMu sync.Mutex
	pending   []Notification
}

// New создает медиатор. Недопустимая конфигурация - ошибка создания.
func New(directory Directory, opts ...Option) (*Mediator, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory не может быть nil: %w", request.ErrInvalidConfig)
	}

	o := &options{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Mediator{
		directory: directory,
		opts:      o,
		logger:    logger,
	}

	hist, err := history.New(o.cfg.CommandHistoryMaxSize, o.cfg.RedoHistoryMaxSize,
		history.WithEvictHandler(func(cmd command.Command) {
			m.enqueue(ActionEvicted, cmd, request.StatusSuccess)
		}),
		history.WithDiscardHandler(func(cmd command.Command) {
			m.enqueue(ActionDiscarded, cmd, request.StatusSuccess)
		}),
	)
	if err != nil {
		return nil, err
	}
	m.history = hist

	allMiddlewares := []Middleware{
		NewLoggingMiddleware(o.logger),
		NewMetricsMiddleware(o.meterProvider),
		NewTracingMiddleware(o.tracerProvider, o.propagator),
	}
	allMiddlewares = append(allMiddlewares, o.middlewares...)
	m.invoker = applyMiddlewares(directInvoker, allMiddlewares...)

	if o.meterProvider != nil {
		reg, err := registerHistoryGauges(o.meterProvider, hist)
		if err != nil {
			return nil, err
		}
		m.registration = reg
	}

	return m, nil
}

// ExecOption настраивает выполнение команды.
type ExecOption func(*execOptions)

type execOptions struct {
	retain func(request.Status) bool
}

// Retain сохраняет команду в истории при любом статусе.
func Retain() ExecOption {
	return RetainIf(func(request.Status) bool { return true })
}

// RetainOn сохраняет команду в истории, если статус ответа входит в statuses.
func RetainOn(statuses ...request.Status) ExecOption {
	return RetainIf(func(s request.Status) bool {
		for _, want := range statuses {
			if s == want {
				return true
			}
		}
		return false
	})
}

// RetainIf сохраняет команду в истории, если fn возвращает true для статуса ответа.
func RetainIf(fn func(request.Status) bool) ExecOption {
	return func(o *execOptions) {
		o.retain = fn
	}
}

// Execute выполняет команду C. Сбои обработчика возвращаются как ответ со
// статусом Failed; ошибкой возвращаются только отсутствие обработчика и
// несоответствие типов. При опции сохранения команда попадает в историю
// после завершения обработчика, и стек повтора очищается.
func Execute[C command.Of[R], R any](ctx context.Context, m *Mediator, cmd C, opts ...ExecOption) (request.Response[R], error) {
	var eo execOptions
	for _, opt := range opts {
		opt(&eo)
	}

	key := request.KeyOf[C, R]()
	entry, err := m.directory.Resolve(key)
	if err != nil {
		return request.Response[R]{}, err
	}
	handler, ok := entry.Handler().(command.Handler[C, R])
	if !ok {
		return request.Response[R]{}, request.TypeMismatch(fmt.Sprintf("command.Handler[%s]", key), entry.Handler())
	}

	if eo.retain != nil {
		if err := m.checkRetainable(ctx, cmd); err != nil {
			return request.Response[R]{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return request.Empty[R](request.StatusCanceled), nil
	}

	var resp request.Response[R]
	inv := Invocation{Operation: OperationExecute, Kind: KindCommand, Key: key, Request: cmd}
	_, err = m.invoker.Invoke(ctx, inv, func(ctx context.Context) (request.Status, error) {
		r, err := handler.Execute(ctx, cmd)
		if err != nil {
			return statusOf(err), err
		}
		resp = r
		return r.Status(), nil
	})
	if err != nil {
		if request.IsContractViolation(err) {
			return request.Response[R]{}, err
		}
		resp = failure[R](err)
	}

	if eo.retain != nil && eo.retain(resp.Status()) {
		if err := m.history.Record(cmd); err != nil {
			return resp, fmt.Errorf("команда %s: %w", key.RequestName(), err)
		}
		m.enqueue(ActionRecorded, cmd, resp.Status())
		m.flush()
	}
	return resp, nil
}

// Ask выполняет запрос Q. Запросы никогда не попадают в историю.
func Ask[Q query.Of[R], R any](ctx context.Context, m *Mediator, q Q) (request.Response[R], error) {
	key := request.KeyOf[Q, R]()
	entry, err := m.directory.Resolve(key)
	if err != nil {
		return request.Response[R]{}, err
	}
	handler, ok := entry.Handler().(query.Handler[Q, R])
	if !ok {
		return request.Response[R]{}, request.TypeMismatch(fmt.Sprintf("query.Handler[%s]", key), entry.Handler())
	}

	if err := ctx.Err(); err != nil {
		return request.Empty[R](request.StatusCanceled), nil
	}

	var resp request.Response[R]
	inv := Invocation{Operation: OperationExecute, Kind: KindQuery, Key: key, Request: q}
	_, err = m.invoker.Invoke(ctx, inv, func(ctx context.Context) (request.Status, error) {
		r, err := handler.Execute(ctx, q)
		if err != nil {
			return statusOf(err), err
		}
		resp = r
		return r.Status(), nil
	})
	if err != nil {
		if request.IsContractViolation(err) {
			return request.Response[R]{}, err
		}
		resp = failure[R](err)
	}
	return resp, nil
}

// Undo отменяет команду через ее обработчик. Историю не меняет.
func (m *Mediator) Undo(ctx context.Context, cmd command.Command) error {
	return m.invokeHistoryOp(ctx, OperationUndo, cmd)
}

// Redo повторяет команду через ее обработчик. Историю не меняет.
func (m *Mediator) Redo(ctx context.Context, cmd command.Command) error {
	return m.invokeHistoryOp(ctx, OperationRedo, cmd)
}

// UndoLast отменяет последнюю команду истории и переносит ее в стек повтора.
// Возвращает false, если история пуста. Если отмена завершилась ошибкой,
// история и стек повтора не меняются. Уведомление публикуется после
// освобождения блокировки.
func (m *Mediator) UndoLast(ctx context.Context) (bool, error) {
	cmd, ok, err := m.undoLast(ctx)
	if ok {
		m.enqueue(ActionUndone, cmd, request.StatusSuccess)
	}
	m.flush()
	return ok, err
}

func (m *Mediator) undoLast(ctx context.Context) (command.Command, bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cmd, ok := m.history.PeekNewest()
	if !ok {
		return nil, false, nil
	}
	if err := m.Undo(ctx, cmd); err != nil {
		return nil, false, err
	}
	if err := m.history.CommitUndo(cmd); err != nil {
		return nil, false, err
	}
	return cmd, true, nil
}

// RedoLastUndone повторяет последнюю отмененную команду и возвращает ее в
// историю, не очищая стек повтора. Возвращает false, если стек пуст.
func (m *Mediator) RedoLastUndone(ctx context.Context) (bool, error) {
	cmd, ok, err := m.redoLastUndone(ctx)
	if ok {
		m.enqueue(ActionRedone, cmd, request.StatusSuccess)
	}
	m.flush()
	return ok, err
}

func (m *Mediator) redoLastUndone(ctx context.Context) (command.Command, bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cmd, ok := m.history.PeekNewestRedo()
	if !ok {
		return nil, false, nil
	}
	if err := m.Redo(ctx, cmd); err != nil {
		return nil, false, err
	}
	if err := m.history.CommitRedo(cmd); err != nil {
		return nil, false, err
	}
	return cmd, true, nil
}

// HistoryLen возвращает текущую длину истории команд.
func (m *Mediator) HistoryLen() int {
	return m.history.Len()
}

// RedoLen возвращает текущую длину стека повтора.
func (m *Mediator) RedoLen() int {
	return m.history.RedoLen()
}

// History возвращает копию истории от самой старой команды к новой.
func (m *Mediator) History() []command.Command {
	return m.history.Snapshot()
}

// RedoStack возвращает копию стека повтора от самой старой команды к вершине.
func (m *Mediator) RedoStack() []command.Command {
	return m.history.RedoSnapshot()
}

// CheckHandlers проверяет, что для всех ключей зарегистрирован обработчик.
// Каждое отсутствие логируется; в строгом режиме возвращается ошибка,
// объединяющая все отсутствующие ключи.
func (m *Mediator) CheckHandlers(keys ...request.Key) error {
	var errs []error
	for _, key := range keys {
		if _, err := m.directory.Resolve(key); err != nil {
			m.logger.Warn("обработчик не зарегистрирован", slog.String("request", key.String()), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 || !m.opts.cfg.StrictHandlers {
		return nil
	}
	return errors.Join(errs...)
}

// Shutdown освобождает ресурсы медиатора.
func (m *Mediator) Shutdown(_ context.Context) error {
	if m.registration != nil {
		if err := m.registration.Unregister(); err != nil {
			return fmt.Errorf("не удалось отменить регистрацию метрик истории: %w", err)
		}
	}
	return nil
}

func (m *Mediator) invokeHistoryOp(ctx context.Context, op Operation, cmd command.Command) error {
	if cmd == nil {
		return fmt.Errorf("команда не может быть nil: %w", request.ErrTypeMismatch)
	}
	key := request.KeyFor(cmd, cmd.ResponseType())
	entry, err := m.directory.Resolve(key)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, historyOpKey{}, op)
	inv := Invocation{Operation: op, Kind: entry.Kind(), Key: key, Request: cmd}
	_, err = m.invoker.Invoke(ctx, inv, func(ctx context.Context) (request.Status, error) {
		var err error
		if op == OperationUndo {
			err = entry.Undo(ctx, cmd)
		} else {
			err = entry.Redo(ctx, cmd)
		}
		if err != nil {
			return statusOf(err), err
		}
		return request.StatusSuccess, nil
	})
	return err
}

// historyOpKey помечает контекст вызова Undo/Redo обработчика.
type historyOpKey struct{}

// checkRetainable запрещает сохранять команду, уже находящуюся в истории
// или стеке повтора, и сохранять команды из обработчиков отмены и повтора.
func (m *Mediator) checkRetainable(ctx context.Context, cmd command.Command) error {
	name := request.KeyFor(cmd, cmd.ResponseType()).RequestName()
	if op, ok := ctx.Value(historyOpKey{}).(Operation); ok {
		return fmt.Errorf("команда %s при %s: %w", name, op, request.ErrRetainDuringUndo)
	}
	if m.history.Contains(cmd) {
		return fmt.Errorf("команда %s: %w", name, request.ErrAlreadyRecorded)
	}
	return nil
}

// enqueue откладывает уведомление до вызова flush. Обратные вызовы истории
// срабатывают под блокировкой отмены и повтора, а подписчики не должны
// вызываться под ней.
func (m *Mediator) enqueue(action Action, cmd command.Command, status request.Status) {
	if m.opts.notifications == nil {
		return
	}
	n := newNotification(action, cmd, status)

	m.pendingMu.Lock()
	m.pending = append(m.pending, n)
	m.pendingMu.Unlock()
}

// flush публикует накопленные уведомления в порядке их появления.
func (m *Mediator) flush() {
	bus := m.opts.notifications
	if bus == nil {
		return
	}

	m.pendingMu.Lock()
	batch := m.pending
	m.pending = nil
	m.pendingMu.Unlock()

	for _, n := range batch {
		if err := bus.Publish(context.Background(), n); err != nil {
			m.logger.Error("не удалось опубликовать уведомление истории",
				slog.String("action", string(n.Action)),
				slog.Any("error", err),
			)
		}
	}
}

func statusOf(err error) request.Status {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return request.StatusCanceled
	}
	return request.StatusFailed
}

func failure[R any](err error) request.Response[R] {
	if statusOf(err) == request.StatusCanceled {
		return request.CanceledWith[R](err)
	}
	return request.FailedWith[R](err)
}

// registerHistoryGauges публикует длины истории и стека повтора как метрики.
func registerHistoryGauges(provider metric.MeterProvider, hist *history.Manager[command.Command]) (metric.Registration, error) {
	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	historyGauge, err := meter.Int64ObservableGauge(
		metricKeyPrefix+"history.length",
		metric.WithDescription("Текущая длина истории команд"),
		metric.WithUnit("{commands}"),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать метрику history.length: %w", err)
	}
	redoGauge, err := meter.Int64ObservableGauge(
		metricKeyPrefix+"redo.length",
		metric.WithDescription("Текущая длина стека повтора"),
		metric.WithUnit("{commands}"),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать метрику redo.length: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(historyGauge, int64(hist.Len()))
		o.ObserveInt64(redoGauge, int64(hist.RedoLen()))
		return nil
	}, historyGauge, redoGauge)
}

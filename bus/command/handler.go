package command

import (
	"context"

	"github.com/x-research-team/dtx-mediator/bus/request"
)

// Handler - обработчик команды C с результатом R.
// Обработчик не хранит состояние истории: ею управляет медиатор.
type Handler[C Of[R], R any] interface {
	// Execute выполняет команду. Бизнес-исход передается статусом ответа,
	// ошибка предназначена для сбоев, которые медиатор превратит в Failed,
	// и для нарушений контракта.
	Execute(ctx context.Context, cmd C) (request.Response[R], error)

	// Undo отменяет эффект команды.
	Undo(ctx context.Context, cmd C) error

	// Redo повторно применяет эффект ранее отмененной команды.
	Redo(ctx context.Context, cmd C) error
}

// Dispatcher - узкий контракт медиатора, нужный обработчикам для отмены
// и повтора подкоманд.
type Dispatcher interface {
	Undo(ctx context.Context, cmd Command) error
	Redo(ctx context.Context, cmd Command) error
}

// UndoSubCommands отменяет подкоманды в обратном порядке: последняя
// выполненная отменяется первой. Останавливается на первой ошибке.
func UndoSubCommands(ctx context.Context, d Dispatcher, cmd Command) error {
	subs := cmd.SubCommands()
	for i := len(subs) - 1; i >= 0; i-- {
		if err := d.Undo(ctx, subs[i]); err != nil {
			return err
		}
	}
	return nil
}

// RedoSubCommands повторяет подкоманды в исходном порядке выполнения.
func RedoSubCommands(ctx context.Context, d Dispatcher, cmd Command) error {
	for _, sub := range cmd.SubCommands() {
		if err := d.Redo(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// HandlerBase дает обработчикам поведение Undo/Redo по умолчанию: отмену
// и повтор записанных подкоманд. Конкретный обработчик встраивает его,
// реализует Execute и при наличии собственного эффекта переопределяет
// Undo/Redo, вызывая сначала базовую реализацию.
type HandlerBase[C Of[R], R any] struct {
	Dispatcher Dispatcher
}

// NewHandlerBase создает основу обработчика, связанную с медиатором.
func NewHandlerBase[C Of[R], R any](d Dispatcher) HandlerBase[C, R] {
	return HandlerBase[C, R]{Dispatcher: d}
}

// Undo отменяет подкоманды команды в обратном порядке.
func (h HandlerBase[C, R]) Undo(ctx context.Context, cmd C) error {
	return UndoSubCommands(ctx, h.Dispatcher, cmd)
}

// Redo повторяет подкоманды команды в прямом порядке.
func (h HandlerBase[C, R]) Redo(ctx context.Context, cmd C) error {
	return RedoSubCommands(ctx, h.Dispatcher, cmd)
}

// HandlerFuncs позволяет собрать обработчик из обычных функций.
// Пустые UndoFunc и RedoFunc означают, что собственного эффекта у команды нет.
type HandlerFuncs[C Of[R], R any] struct {
	ExecuteFunc func(ctx context.Context, cmd C) (request.Response[R], error)
	UndoFunc    func(ctx context.Context, cmd C) error
	RedoFunc    func(ctx context.Context, cmd C) error
}

// Execute вызывает ExecuteFunc.
func (h HandlerFuncs[C, R]) Execute(ctx context.Context, cmd C) (request.Response[R], error) {
	return h.ExecuteFunc(ctx, cmd)
}

// Undo вызывает UndoFunc, если она задана.
func (h HandlerFuncs[C, R]) Undo(ctx context.Context, cmd C) error {
	if h.UndoFunc == nil {
		return nil
	}
	return h.UndoFunc(ctx, cmd)
}

// Redo вызывает RedoFunc, если она задана.
func (h HandlerFuncs[C, R]) Redo(ctx context.Context, cmd C) error {
	if h.RedoFunc == nil {
		return nil
	}
	return h.RedoFunc(ctx, cmd)
}

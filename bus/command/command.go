// Package command определяет команды - запросы с побочным эффектом, которые
// можно отменить и повторить, - и строительные блоки для их обработчиков.
package command

import (
	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dtx-mediator/bus/request"
)

// Command - общий контракт любой команды, независимо от типа ее результата.
// Через него медиатор работает с историей и деревом подкоманд.
type Command interface {
	// RecordSubCommand добавляет дочернюю команду в конец последовательности
	// подкоманд. Обработчик вызывает его сразу после выполнения вложенной команды.
	RecordSubCommand(child Command)

	// SubCommands возвращает копию подкоманд в порядке их выполнения.
	SubCommands() []Command

	// ResponseType возвращает тип результата, который ожидает команда.
	ResponseType() reflect.Type
}

// Of - команда, ожидающая результат типа R.
// Реализуется только встраиванием Base[R].
type Of[R any] interface {
	Command
	expects(R)
}

// Base реализует запись дерева подкоманд и маркер типа результата.
// Команды встраивают его и передаются по указателю:
//
//	type ChangeAge struct {
//		command.Plain
//		NewAge int
//	}
type Base[R any] struct {
	subCommands []Command
}

// Plain - основа команды без результата.
type Plain = Base[request.Unit]

// RecordSubCommand добавляет подкоманду. Запись всегда допустима.
func (b *Base[R]) RecordSubCommand(child Command) {
	b.subCommands = append(b.subCommands, child)
}

// SubCommands возвращает копию подкоманд в прямом порядке.
func (b *Base[R]) SubCommands() []Command {
	out := make([]Command, len(b.subCommands))
	copy(out, b.subCommands)
	return out
}

// ResponseType возвращает тип R.
func (b *Base[R]) ResponseType() reflect.Type {
	return request.TypeOf[R]()
}

func (b *Base[R]) expects(R) {}

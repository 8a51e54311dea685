// Package request описывает общую модель данных, которая проходит через
// медиатор: статусы выполнения, типизированные ответы, ключи поиска
// обработчиков и таксономию ошибок.
package request

// Status описывает итог выполнения команды или запроса.
type Status int

const (
	// StatusSuccess означает, что запрос успешно выполнен.
	StatusSuccess Status = iota
	// StatusFailed означает, что обработчик не смог выполнить запрос.
	StatusFailed
	// StatusCanceled означает, что выполнение было отменено.
	StatusCanceled
)

// String возвращает текстовое представление статуса.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

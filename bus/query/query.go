// Package query определяет запросы - операции чтения без побочных эффектов.
// Запросы никогда не попадают в историю и не поддерживают отмену.
package query

import (
	"context"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dtx-mediator/bus/request"
)

// Query - общий контракт любого запроса.
type Query interface {
	// ResponseType возвращает тип результата, который ожидает запрос.
	ResponseType() reflect.Type
}

// Of - запрос, ожидающий результат типа R.
// Реализуется встраиванием Base[R].
type Of[R any] interface {
	Query
	expects(R)
}

// Base - маркер типа результата для запросов.
type Base[R any] struct{}

// ResponseType возвращает тип R.
func (Base[R]) ResponseType() reflect.Type {
	return request.TypeOf[R]()
}

func (Base[R]) expects(R) {}

// Handler - обработчик запроса Q с результатом R.
type Handler[Q Of[R], R any] interface {
	Execute(ctx context.Context, q Q) (request.Response[R], error)
}

// HandlerFunc позволяет использовать обычную функцию как обработчик запроса.
type HandlerFunc[Q Of[R], R any] func(ctx context.Context, q Q) (request.Response[R], error)

// Execute вызывает f(ctx, q).
func (f HandlerFunc[Q, R]) Execute(ctx context.Context, q Q) (request.Response[R], error) {
	return f(ctx, q)
}

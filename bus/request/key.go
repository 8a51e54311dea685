package request

import (
	"fmt"

	"github.com/goccy/go-reflect"
)

// Key - составной ключ поиска обработчика: тип запроса и тип ожидаемого ответа.
type Key struct {
	Request  reflect.Type
	Response reflect.Type
}

// KeyOf строит ключ по статическим типам запроса и ответа.
func KeyOf[Req, Resp any]() Key {
	return Key{
		Request:  TypeOf[Req](),
		Response: TypeOf[Resp](),
	}
}

// KeyFor строит ключ по динамическому типу запроса и известному типу ответа.
func KeyFor(req any, response reflect.Type) Key {
	return Key{
		Request:  reflect.TypeOf(req),
		Response: response,
	}
}

// TypeOf возвращает тип T, корректно обрабатывая интерфейсные типы.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// String возвращает человекочитаемое представление ключа.
func (k Key) String() string {
	return fmt.Sprintf("%s -> %s", typeName(k.Request), typeName(k.Response))
}

// RequestName возвращает имя типа запроса без указателя.
func (k Key) RequestName() string {
	t := k.Request
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

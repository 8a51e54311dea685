package request

// Unit - маркер ответа "значение не ожидается". Он отличает команды без
// результата от команд, чей результат ожидается, но отсутствует.
type Unit struct{}

// Response оборачивает необязательное значение результата вместе со статусом.
// Статус задается один раз при создании и больше не меняется.
type Response[R any] struct {
	value  R
	has    bool
	status Status
	err    error
}

// Success создает успешный ответ со значением.
func Success[R any](value R) Response[R] {
	return Response[R]{value: value, has: true, status: StatusSuccess}
}

// Failed создает ответ со статусом Failed и значением.
func Failed[R any](value R) Response[R] {
	return Response[R]{value: value, has: true, status: StatusFailed}
}

// Canceled создает ответ со статусом Canceled и значением.
func Canceled[R any](value R) Response[R] {
	return Response[R]{value: value, has: true, status: StatusCanceled}
}

// Empty создает ответ без значения с указанным статусом.
func Empty[R any](status Status) Response[R] {
	return Response[R]{status: status}
}

// FailedWith создает неуспешный ответ без значения, сохраняя причину сбоя.
func FailedWith[R any](err error) Response[R] {
	return Response[R]{status: StatusFailed, err: err}
}

// CanceledWith создает отмененный ответ без значения, сохраняя причину.
func CanceledWith[R any](err error) Response[R] {
	return Response[R]{status: StatusCanceled, err: err}
}

// Done - сокращение для ответов команд без результата.
func Done(status Status) Response[Unit] {
	return Response[Unit]{value: Unit{}, has: true, status: status}
}

// Status возвращает статус ответа.
func (r Response[R]) Status() Status {
	return r.status
}

// Value возвращает значение и признак его наличия.
func (r Response[R]) Value() (R, bool) {
	return r.value, r.has
}

// ValueOr возвращает значение или def, если значение отсутствует.
func (r Response[R]) ValueOr(def R) R {
	if !r.has {
		return def
	}
	return r.value
}

// Err возвращает причину сбоя обработчика, если она была сохранена.
func (r Response[R]) Err() error {
	return r.err
}

// IsSuccess сообщает, завершился ли запрос успешно.
func (r Response[R]) IsSuccess() bool {
	return r.status == StatusSuccess
}

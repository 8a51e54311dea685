package request

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingHandler возвращается, если для ключа запроса не зарегистрирован обработчик.
	ErrMissingHandler = errors.New("обработчик не найден")

	// ErrTypeMismatch возвращается, если обработчик вызван с запросом чужого типа.
	// Это ошибка связывания, а не ошибка данных: она никогда не повторяется.
	ErrTypeMismatch = errors.New("несоответствие типов")

	// ErrInvalidConfig возвращается при недопустимой конфигурации.
	ErrInvalidConfig = errors.New("недопустимая конфигурация")

	// ErrHandlerAlreadyRegistered возвращается при повторной регистрации обработчика.
	ErrHandlerAlreadyRegistered = errors.New("обработчик уже зарегистрирован")

	// ErrAlreadyRecorded возвращается при повторной записи экземпляра команды,
	// который уже находится в истории или в стеке повтора.
	ErrAlreadyRecorded = errors.New("команда уже находится в истории")

	// ErrRetainDuringUndo возвращается, если обработчик отмены или повтора
	// выполняет команду с сохранением в историю.
	ErrRetainDuringUndo = errors.New("сохранение команды в историю во время отмены или повтора")

	// ErrHistoryChanged возвращается, если история изменилась во время отмены или повтора.
	ErrHistoryChanged = errors.New("история команд изменилась во время операции")
)

// MissingHandler оборачивает ErrMissingHandler с указанием ключа.
func MissingHandler(key Key) error {
	return fmt.Errorf("обработчик для '%s': %w", key, ErrMissingHandler)
}

// TypeMismatch оборачивает ErrTypeMismatch с указанием ожидаемого и полученного типа.
func TypeMismatch(expected string, got any) error {
	return fmt.Errorf("ожидался '%s', получен '%T': %w", expected, got, ErrTypeMismatch)
}

// IsContractViolation сообщает, является ли ошибка дефектом связывания,
// который нельзя превращать в статус ответа.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrMissingHandler) ||
		errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrAlreadyRecorded) ||
		errors.Is(err, ErrRetainDuringUndo)
}

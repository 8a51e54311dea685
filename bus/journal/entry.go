// Package journal ведет аудит-журнал изменений истории команд медиатора.
// Журнал только фиксирует переходы и никогда не восстанавливает историю.
package journal

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/x-research-team/dtx-mediator/bus/mediator"
)

// Entry - запись журнала об одном переходе команды.
type Entry struct {
	ID          uuid.UUID // Уникальный идентификатор записи
	Action      string    // Переход (recorded, undone, redone, evicted, discarded)
	RequestType string    // Имя типа команды
	Status      string    // Статус выполнения команды
	Payload     []byte    // Сериализованная команда
	CreatedAt   time.Time // Время перехода
}

// Storage определяет контракт хранилища журнала.
// Все операции должны быть потокобезопасными.
type Storage interface {
	// Save сохраняет запись в хранилище.
	Save(ctx context.Context, entry *Entry) error

	// List возвращает не более limit последних записей в порядке их создания.
	// Неположительный limit означает "все записи".
	List(ctx context.Context, limit int) ([]*Entry, error)
}

// NewEntry преобразует уведомление медиатора в запись журнала.
func NewEntry(n mediator.Notification) (*Entry, error) {
	var payload []byte
	if n.Command != nil {
		var err error
		payload, err = json.Marshal(n.Command)
		if err != nil {
			return nil, err
		}
	}

	return &Entry{
		ID:          n.ID,
		Action:      string(n.Action),
		RequestType: n.RequestType,
		Status:      n.Status.String(),
		Payload:     payload,
		CreatedAt:   n.OccurredAt,
	}, nil
}

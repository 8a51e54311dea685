package mediator

import (
	"time"

	"github.com/google/uuid"

	"github.com/x-research-team/dtx-mediator/bus/command"
	"github.com/x-research-team/dtx-mediator/bus/request"
)

// NotificationTopic - топик уведомлений об изменениях истории.
const NotificationTopic = "mediator.history"

// Action описывает переход команды между историей и стеком повтора.
type Action string

const (
	// ActionRecorded - команда выполнена и добавлена в историю.
	ActionRecorded Action = "recorded"
	// ActionUndone - команда отменена и перенесена в стек повтора.
	ActionUndone Action = "undone"
	// ActionRedone - команда повторена и возвращена в историю.
	ActionRedone Action = "redone"
	// ActionEvicted - команда вытеснена из переполненной истории.
	ActionEvicted Action = "evicted"
	// ActionDiscarded - команда отброшена из стека повтора.
	ActionDiscarded Action = "discarded"
)

// Notification - событие об изменении истории команд.
type Notification struct {
	ID          uuid.UUID
	Action      Action
	RequestType string
	Status      request.Status
	Command     command.Command
	OccurredAt  time.Time
}

// Topic реализует event.Event.
func (Notification) Topic() string {
	return NotificationTopic
}

func newNotification(action Action, cmd command.Command, status request.Status) Notification {
	return Notification{
		ID:          uuid.New(),
		Action:      action,
		RequestType: request.KeyFor(cmd, cmd.ResponseType()).RequestName(),
		Status:      status,
		Command:     cmd,
		OccurredAt:  time.Now().UTC(),
	}
}

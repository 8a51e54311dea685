package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/dtx-mediator/bus/command"
	"github.com/x-research-team/dtx-mediator/bus/request"
)

// Тестовая команда без результата.
type stepCommand struct {
	command.Plain
	Name string
}

// Тестовая команда с результатом.
type countCommand struct {
	command.Base[int]
}

// recordingDispatcher записывает порядок вызовов Undo/Redo.
type recordingDispatcher struct {
	log    []string
	failOn string
}

func (d *recordingDispatcher) Undo(_ context.Context, cmd command.Command) error {
	name := cmd.(*stepCommand).Name
	if name == d.failOn {
		return errors.New("сбой отмены")
	}
	d.log = append(d.log, "undo:"+name)
	return nil
}

func (d *recordingDispatcher) Redo(_ context.Context, cmd command.Command) error {
	d.log = append(d.log, "redo:"+cmd.(*stepCommand).Name)
	return nil
}

func newParent(names ...string) *stepCommand {
	parent := &stepCommand{Name: "parent"}
	for _, n := range names {
		parent.RecordSubCommand(&stepCommand{Name: n})
	}
	return parent
}

func TestBase_RecordSubCommand(t *testing.T) {
	t.Parallel()

	parent := newParent("A", "B")
	subs := parent.SubCommands()
	require.Len(t, subs, 2)
	assert.Equal(t, "A", subs[0].(*stepCommand).Name)
	assert.Equal(t, "B", subs[1].(*stepCommand).Name)

	// Изменение копии не затрагивает команду.
	subs[0] = nil
	assert.NotNil(t, parent.SubCommands()[0])
}

func TestBase_ResponseType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, request.TypeOf[request.Unit](), (&stepCommand{}).ResponseType())
	assert.Equal(t, request.TypeOf[int](), (&countCommand{}).ResponseType())
}

func TestUndoSubCommands_ReverseOrder(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	err := command.UndoSubCommands(context.Background(), d, newParent("A", "B", "C"))

	require.NoError(t, err)
	assert.Equal(t, []string{"undo:C", "undo:B", "undo:A"}, d.log)
}

func TestRedoSubCommands_ForwardOrder(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	err := command.RedoSubCommands(context.Background(), d, newParent("A", "B", "C"))

	require.NoError(t, err)
	assert.Equal(t, []string{"redo:A", "redo:B", "redo:C"}, d.log)
}

func TestUndoSubCommands_StopsOnError(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{failOn: "B"}
	err := command.UndoSubCommands(context.Background(), d, newParent("A", "B", "C"))

	require.Error(t, err)
	assert.Equal(t, []string{"undo:C"}, d.log, "после ошибки отмена должна прекратиться")
}

func TestHandlerBase_Defaults(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	base := command.NewHandlerBase[*stepCommand, request.Unit](d)
	parent := newParent("A", "B")

	require.NoError(t, base.Undo(context.Background(), parent))
	require.NoError(t, base.Redo(context.Background(), parent))
	assert.Equal(t, []string{"undo:B", "undo:A", "redo:A", "redo:B"}, d.log)
}

func TestHandlerFuncs_OptionalUndoRedo(t *testing.T) {
	t.Parallel()

	h := command.HandlerFuncs[*countCommand, int]{
		ExecuteFunc: func(ctx context.Context, cmd *countCommand) (request.Response[int], error) {
			return request.Success(7), nil
		},
	}

	resp, err := h.Execute(context.Background(), &countCommand{})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.ValueOr(0))
	assert.NoError(t, h.Undo(context.Background(), &countCommand{}))
	assert.NoError(t, h.Redo(context.Background(), &countCommand{}))
}

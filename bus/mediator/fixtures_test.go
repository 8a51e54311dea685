package mediator_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/x-research-team/dtx-mediator/bus/command"
	"github.com/x-research-team/dtx-mediator/bus/mediator"
	"github.com/x-research-team/dtx-mediator/bus/query"
	"github.com/x-research-team/dtx-mediator/bus/request"
)

var errBoom = errors.New("сбой обработчика")

// counter - общее состояние, которое меняют тестовые команды.
type counter struct {
	mu    sync.Mutex
	value int
	log   []string
}

func (c *counter) set(v int) (prev int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, c.value = c.value, v
	return prev
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *counter) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, s)
}

func (c *counter) entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

// SetValue устанавливает значение счетчика.
type SetValue struct {
	command.Plain
	Value int
	prev  int
}

type setValueHandler struct {
	command.HandlerBase[*SetValue, request.Unit]
	state *counter
}

func (h *setValueHandler) Execute(_ context.Context, cmd *SetValue) (request.Response[request.Unit], error) {
	cmd.prev = h.state.set(cmd.Value)
	return request.Done(request.StatusSuccess), nil
}

func (h *setValueHandler) Undo(_ context.Context, cmd *SetValue) error {
	h.state.set(cmd.prev)
	return nil
}

func (h *setValueHandler) Redo(_ context.Context, cmd *SetValue) error {
	h.state.set(cmd.Value)
	return nil
}

// Step пишет свое имя в журнал счетчика при выполнении, отмене и повторе.
type Step struct {
	command.Plain
	Name string
}

// Composite выполняет шаги как подкоманды.
type Composite struct {
	command.Plain
	Steps []string
}

// Double возвращает удвоенное значение и падает на отрицательных.
type Double struct {
	command.Base[int]
	N int
}

// Broken падает при отмене и повторе.
type Broken struct {
	command.Plain
}

// Unregistered не имеет обработчика.
type Unregistered struct {
	command.Plain
}

// CurrentValue читает значение счетчика.
type CurrentValue struct {
	query.Base[int]
}

type fixture struct {
	m     *mediator.Mediator
	reg   *mediator.Registry
	state *counter
}

func newFixture(t *testing.T, opts ...mediator.Option) *fixture {
	t.Helper()

	reg := mediator.NewRegistry()
	opts = append([]mediator.Option{mediator.WithLogger(nil)}, opts...)
	m, err := mediator.New(reg, opts...)
	require.NoError(t, err)

	f := &fixture{m: m, reg: reg, state: &counter{}}

	require.NoError(t, mediator.RegisterCommand[*SetValue, request.Unit](reg, &setValueHandler{
		HandlerBase: command.NewHandlerBase[*SetValue, request.Unit](m),
		state:       f.state,
	}))

	require.NoError(t, mediator.RegisterCommand[*Step, request.Unit](reg, command.HandlerFuncs[*Step, request.Unit]{
		ExecuteFunc: func(_ context.Context, cmd *Step) (request.Response[request.Unit], error) {
			f.state.write("execute " + cmd.Name)
			return request.Done(request.StatusSuccess), nil
		},
		UndoFunc: func(_ context.Context, cmd *Step) error {
			f.state.write("undo " + cmd.Name)
			return nil
		},
		RedoFunc: func(_ context.Context, cmd *Step) error {
			f.state.write("redo " + cmd.Name)
			return nil
		},
	}))

	base := command.NewHandlerBase[*Composite, request.Unit](m)
	require.NoError(t, mediator.RegisterCommand[*Composite, request.Unit](reg, command.HandlerFuncs[*Composite, request.Unit]{
		ExecuteFunc: func(ctx context.Context, cmd *Composite) (request.Response[request.Unit], error) {
			for _, name := range cmd.Steps {
				step := &Step{Name: name}
				resp, err := mediator.Execute[*Step, request.Unit](ctx, m, step)
				if err != nil {
					return request.Response[request.Unit]{}, err
				}
				if !resp.IsSuccess() {
					return request.Done(resp.Status()), nil
				}
				cmd.RecordSubCommand(step)
			}
			return request.Done(request.StatusSuccess), nil
		},
		UndoFunc: base.Undo,
		RedoFunc: base.Redo,
	}))

	require.NoError(t, mediator.RegisterCommand[*Double, int](reg, command.HandlerFuncs[*Double, int]{
		ExecuteFunc: func(_ context.Context, cmd *Double) (request.Response[int], error) {
			if cmd.N < 0 {
				return request.Response[int]{}, errBoom
			}
			return request.Success(cmd.N * 2), nil
		},
	}))

	require.NoError(t, mediator.RegisterCommand[*Broken, request.Unit](reg, command.HandlerFuncs[*Broken, request.Unit]{
		ExecuteFunc: func(context.Context, *Broken) (request.Response[request.Unit], error) {
			return request.Done(request.StatusSuccess), nil
		},
		UndoFunc: func(context.Context, *Broken) error { return errBoom },
		RedoFunc: func(context.Context, *Broken) error { return errBoom },
	}))

	require.NoError(t, mediator.RegisterQueryFunc[CurrentValue, int](reg, func(context.Context, CurrentValue) (request.Response[int], error) {
		return request.Success(f.state.get()), nil
	}))

	return f
}

func (f *fixture) set(t *testing.T, v int) *SetValue {
	t.Helper()
	cmd := &SetValue{Value: v}
	resp, err := mediator.Execute[*SetValue, request.Unit](context.Background(), f.m, cmd, mediator.Retain())
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	return cmd
}

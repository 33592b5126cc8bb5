package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/app/commands"
)

type echoCommand struct{ Text string }

func (echoCommand) Key() string { return "test.echo" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, cmd echoCommand) (string, error) {
	return "echo:" + cmd.Text, nil
}

func TestRegistryDispatch(t *testing.T) {
	reg := commands.NewRegistry()
	commands.Register[echoCommand, string](reg, echoHandler{})
	assert.Equal(t, []string{"test.echo"}, reg.Keys())

	out, err := commands.Dispatch[echoCommand, string](context.Background(), reg, echoCommand{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)

	_, err = reg.Dispatch(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, commands.ErrHandlerNotFound)

	_, err = commands.Dispatch[echoCommand, int](context.Background(), reg, echoCommand{})
	assert.ErrorIs(t, err, commands.ErrResultType)

	_, err = commands.Dispatch[echoCommand, string](context.Background(), nil, echoCommand{})
	assert.ErrorIs(t, err, commands.ErrNilBus)
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := commands.NewRegistry()
	commands.Register[echoCommand, string](reg, echoHandler{})
	assert.Panics(t, func() { commands.Register[echoCommand, string](reg, echoHandler{}) })
}

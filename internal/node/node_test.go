package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incisors/dagflow/internal/value"
)

func doubler(in map[string]value.Value, out map[string]value.Value) error {
	x, err := in["x"].AsFloat64()
	if err != nil {
		return err
	}
	out["y"] = value.NewFloat64(x * 2)
	return nil
}

func TestExecuteInvokesMatchingKind(t *testing.T) {
	n := New(CPU)
	n.AddInput("x", value.Value{})
	n.AddOutput("y", value.Value{})
	n.SetCPUProcess(doubler)

	require.NoError(t, n.SetInput("x", value.NewFloat64(3)))
	require.NoError(t, n.Execute())

	y, err := n.Output("y")
	require.NoError(t, err)
	got, err := y.AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)
}

func TestUnmatchedKindRegistrationIsDropped(t *testing.T) {
	n := New(GPU)
	n.AddInput("x", value.Value{})
	n.AddOutput("y", value.Value{})

	// A CPU function on a GPU node is never invoked.
	n.SetCPUProcess(func(in, out map[string]value.Value) error {
		t.Fatal("cpu process invoked on gpu node")
		return nil
	})

	require.NoError(t, n.SetInput("x", value.NewFloat64(1)))
	require.NoError(t, n.Execute())

	y, err := n.Output("y")
	require.NoError(t, err)
	assert.True(t, y.IsNil(), "output stays at its placeholder")
}

func TestExecuteNoProcessIsNoop(t *testing.T) {
	n := New(CPU)
	n.AddInput("x", value.Value{})
	assert.NoError(t, n.Execute())
}

func TestAddInputIdempotent(t *testing.T) {
	n := New(CPU)
	n.AddInput("x", value.NewFloat64(1))
	n.AddInput("x", value.NewFloat64(2))

	require.Equal(t, []string{"x"}, n.InputFields())
	v, err := n.Input("x")
	require.NoError(t, err)
	got, err := v.AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 2.0, got, "second declaration overwrites the placeholder")
}

func TestAddOutputIdempotent(t *testing.T) {
	n := New(CPU)
	n.AddOutput("y", value.Value{})
	n.AddOutput("y", value.NewInt(1))
	assert.Equal(t, []string{"y"}, n.OutputFields())
}

func TestUndeclaredFieldAccess(t *testing.T) {
	n := New(CPU)
	n.AddInput("x", value.Value{})

	_, err := n.Input("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, err = n.Output("missing")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	assert.ErrorIs(t, n.SetInput("missing", value.NewInt(1)), ErrFieldNotFound)
	assert.ErrorIs(t, n.SetOutput("missing", value.NewInt(1)), ErrFieldNotFound)
}

func TestFieldsSorted(t *testing.T) {
	n := New(CPU)
	n.AddInput("b", value.Value{})
	n.AddInput("a", value.Value{})
	n.AddOutput("d", value.Value{})
	n.AddOutput("c", value.Value{})

	assert.Equal(t, []string{"a", "b"}, n.InputFields())
	assert.Equal(t, []string{"c", "d"}, n.OutputFields())
	assert.True(t, n.HasInput("a"))
	assert.False(t, n.HasInput("c"))
	assert.True(t, n.HasOutput("c"))
}

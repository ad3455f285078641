package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsNil(t *testing.T) {
	var v Value
	assert.Equal(t, Nil, v.Kind())
	assert.True(t, v.IsNil())
}

func TestScalarRoundTrips(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		got, err := NewInt(-7).AsInt()
		require.NoError(t, err)
		assert.Equal(t, int32(-7), got)
	})
	t.Run("int64", func(t *testing.T) {
		got, err := NewInt64(1 << 40).AsInt64()
		require.NoError(t, err)
		assert.Equal(t, int64(1<<40), got)
	})
	t.Run("uint", func(t *testing.T) {
		got, err := NewUint(42).AsUint()
		require.NoError(t, err)
		assert.Equal(t, uint32(42), got)
	})
	t.Run("uint64", func(t *testing.T) {
		got, err := NewUint64(1 << 50).AsUint64()
		require.NoError(t, err)
		assert.Equal(t, uint64(1<<50), got)
	})
	t.Run("float32", func(t *testing.T) {
		got, err := NewFloat32(1.5).AsFloat32()
		require.NoError(t, err)
		assert.Equal(t, float32(1.5), got)
	})
	t.Run("float64", func(t *testing.T) {
		got, err := NewFloat64(2.25).AsFloat64()
		require.NoError(t, err)
		assert.Equal(t, 2.25, got)
	})
	t.Run("string", func(t *testing.T) {
		got, err := NewString("hello").AsString()
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})
}

func TestWrongVariantExtraction(t *testing.T) {
	v := NewFloat64(1.0)

	_, err := v.AsString()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = v.AsInt()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = v.AsFloat32()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = v.AsFloat64Slice()
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestMismatchErrorNamesBothKinds(t *testing.T) {
	_, err := NewString("x").AsInt64()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "int64")
	assert.Contains(t, err.Error(), "string")
}

func TestSequenceDoesNotAliasCallerSlice(t *testing.T) {
	src := []float64{1, 2, 3}
	v := NewFloat64Slice(src)
	src[0] = 99

	got, err := v.AsFloat64Slice()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)

	// Mutating the accessor result must not leak back either.
	got[1] = 88
	again, err := v.AsFloat64Slice()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, again)
}

func TestNilAccessorsFail(t *testing.T) {
	var v Value
	_, err := v.AsFloat64()
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = v.AsStringSlice()
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

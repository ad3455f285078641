// Package value defines the closed set of record value kinds that flow
// through a pipeline: signed and unsigned integers of two widths, two
// float widths, strings, and homogeneous sequences of each numeric and
// string element type. A Value is immutable once constructed and is
// copied by value between batch storages.
package value

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when a Value is unwrapped as the wrong kind.
var ErrTypeMismatch = errors.New("value: type mismatch")

// Kind identifies which variant a Value holds.
type Kind int

const (
	// Nil is the kind of the zero Value, used as the placeholder seeded
	// by field declaration before any record is bound.
	Nil Kind = iota
	Int
	Int64
	Uint
	Uint64
	Float32
	Float64
	String
	IntSlice
	Int64Slice
	Float32Slice
	Float64Slice
	StringSlice
)

var kindNames = map[Kind]string{
	Nil:          "nil",
	Int:          "int",
	Int64:        "int64",
	Uint:         "uint",
	Uint64:       "uint64",
	Float32:      "float32",
	Float64:      "float64",
	String:       "string",
	IntSlice:     "[]int32",
	Int64Slice:   "[]int64",
	Float32Slice: "[]float32",
	Float64Slice: "[]float64",
	StringSlice:  "[]string",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a tagged union over the closed kind set. The zero Value has
// kind Nil.
type Value struct {
	kind    Kind
	payload any
}

// Kind reports which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether the value is the Nil placeholder.
func (v Value) IsNil() bool { return v.kind == Nil }

func (v Value) String() string {
	if v.kind == Nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v", v.payload)
}

// Constructors. Sequence constructors copy their argument so the Value
// cannot alias caller-owned memory.

func NewInt(i int32) Value     { return Value{kind: Int, payload: i} }
func NewInt64(i int64) Value   { return Value{kind: Int64, payload: i} }
func NewUint(u uint32) Value   { return Value{kind: Uint, payload: u} }
func NewUint64(u uint64) Value { return Value{kind: Uint64, payload: u} }
func NewFloat32(f float32) Value {
	return Value{kind: Float32, payload: f}
}
func NewFloat64(f float64) Value {
	return Value{kind: Float64, payload: f}
}
func NewString(s string) Value { return Value{kind: String, payload: s} }

func NewIntSlice(s []int32) Value {
	return Value{kind: IntSlice, payload: cloneSlice(s)}
}
func NewInt64Slice(s []int64) Value {
	return Value{kind: Int64Slice, payload: cloneSlice(s)}
}
func NewFloat32Slice(s []float32) Value {
	return Value{kind: Float32Slice, payload: cloneSlice(s)}
}
func NewFloat64Slice(s []float64) Value {
	return Value{kind: Float64Slice, payload: cloneSlice(s)}
}
func NewStringSlice(s []string) Value {
	return Value{kind: StringSlice, payload: cloneSlice(s)}
}

func cloneSlice[E any](s []E) []E {
	if s == nil {
		return nil
	}
	out := make([]E, len(s))
	copy(out, s)
	return out
}

func mismatch(want, got Kind) error {
	return fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, want, got)
}

// Accessors. Each fails with an error wrapping ErrTypeMismatch when the
// value holds a different variant.

func (v Value) AsInt() (int32, error) {
	if v.kind != Int {
		return 0, mismatch(Int, v.kind)
	}
	return v.payload.(int32), nil
}

func (v Value) AsInt64() (int64, error) {
	if v.kind != Int64 {
		return 0, mismatch(Int64, v.kind)
	}
	return v.payload.(int64), nil
}

func (v Value) AsUint() (uint32, error) {
	if v.kind != Uint {
		return 0, mismatch(Uint, v.kind)
	}
	return v.payload.(uint32), nil
}

func (v Value) AsUint64() (uint64, error) {
	if v.kind != Uint64 {
		return 0, mismatch(Uint64, v.kind)
	}
	return v.payload.(uint64), nil
}

func (v Value) AsFloat32() (float32, error) {
	if v.kind != Float32 {
		return 0, mismatch(Float32, v.kind)
	}
	return v.payload.(float32), nil
}

func (v Value) AsFloat64() (float64, error) {
	if v.kind != Float64 {
		return 0, mismatch(Float64, v.kind)
	}
	return v.payload.(float64), nil
}

func (v Value) AsString() (string, error) {
	if v.kind != String {
		return "", mismatch(String, v.kind)
	}
	return v.payload.(string), nil
}

func (v Value) AsIntSlice() ([]int32, error) {
	if v.kind != IntSlice {
		return nil, mismatch(IntSlice, v.kind)
	}
	return cloneSlice(v.payload.([]int32)), nil
}

func (v Value) AsInt64Slice() ([]int64, error) {
	if v.kind != Int64Slice {
		return nil, mismatch(Int64Slice, v.kind)
	}
	return cloneSlice(v.payload.([]int64)), nil
}

func (v Value) AsFloat32Slice() ([]float32, error) {
	if v.kind != Float32Slice {
		return nil, mismatch(Float32Slice, v.kind)
	}
	return cloneSlice(v.payload.([]float32)), nil
}

func (v Value) AsFloat64Slice() ([]float64, error) {
	if v.kind != Float64Slice {
		return nil, mismatch(Float64Slice, v.kind)
	}
	return cloneSlice(v.payload.([]float64)), nil
}

func (v Value) AsStringSlice() ([]string, error) {
	if v.kind != StringSlice {
		return nil, mismatch(StringSlice, v.kind)
	}
	return cloneSlice(v.payload.([]string)), nil
}

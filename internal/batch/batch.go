// Package batch implements the mini-batch: an ordered, append-only
// column of values for one field over one logical group of records,
// with an optional name.
package batch

import (
	"errors"
	"fmt"

	"github.com/incisors/dagflow/internal/value"
)

// ErrIndexOutOfRange is returned by At for indices outside [0, Len()).
var ErrIndexOutOfRange = errors.New("batch: index out of range")

// Batch holds an ordered sequence of values. Indices are zero-based and
// stable; the sequence only grows via Append, and Clear is the sole way
// to shrink it.
type Batch struct {
	name string
	data []value.Value
}

// New returns an empty, unnamed batch.
func New() *Batch {
	return &Batch{}
}

// Of returns an unnamed batch holding the given values in order.
func Of(values ...value.Value) *Batch {
	b := &Batch{data: make([]value.Value, len(values))}
	copy(b.data, values)
	return b
}

// Named returns a batch with the given name holding the values in order.
func Named(name string, values ...value.Value) *Batch {
	b := Of(values...)
	b.name = name
	return b
}

// Append adds a value to the end of the batch.
func (b *Batch) Append(v value.Value) {
	b.data = append(b.data, v)
}

// At returns the i-th appended value. It fails with an error wrapping
// ErrIndexOutOfRange when i is outside [0, Len()).
func (b *Batch) At(i int) (value.Value, error) {
	if i < 0 || i >= len(b.data) {
		return value.Value{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(b.data))
	}
	return b.data[i], nil
}

// Len reports the number of values held.
func (b *Batch) Len() int {
	return len(b.data)
}

// Clear removes all values. The name is kept.
func (b *Batch) Clear() {
	b.data = b.data[:0]
}

// Name returns the batch's optional name.
func (b *Batch) Name() string {
	return b.name
}

// SetName sets the batch's name.
func (b *Batch) SetName(name string) {
	b.name = name
}

// Clone returns an independent copy. Values are immutable, so a fresh
// backing slice is sufficient for producer and consumer cells to not
// observe each other after propagation.
func (b *Batch) Clone() *Batch {
	out := &Batch{name: b.name}
	if b.data != nil {
		out.data = make([]value.Value, len(b.data))
		copy(out.data, b.data)
	}
	return out
}

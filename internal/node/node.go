// Package node implements a single computation unit of a pipeline: a
// compute-kind tag, declared input and output field names, a process
// function, and the transient single-record working set bound during
// execution.
package node

import (
	"errors"
	"fmt"
	"sort"

	"github.com/incisors/dagflow/internal/value"
)

// ErrFieldNotFound is returned when a transient accessor or mutator
// names a field the node never declared.
var ErrFieldNotFound = errors.New("node: field not declared")

// Kind routes a node to a compute backend. GPU is a routing label only;
// both kinds execute in-process.
type Kind int

const (
	CPU Kind = iota
	GPU
)

func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Process maps the node's named input fields to its named output fields
// for one record. Implementations read from inputs and write results
// into outputs in place.
type Process func(inputs map[string]value.Value, outputs map[string]value.Value) error

// Node is a computation unit. The kind is fixed at construction and
// only a process function registered for that kind is ever invoked.
// Declared field-name sets never change once the graph is built; during
// execution only the transient per-record values bound to those names
// change.
type Node struct {
	kind    Kind
	process Process

	inputs  map[string]value.Value
	outputs map[string]value.Value
}

// New returns a node of the given kind with no process function and no
// declared fields.
func New(kind Kind) *Node {
	return &Node{
		kind:    kind,
		inputs:  make(map[string]value.Value),
		outputs: make(map[string]value.Value),
	}
}

// NewWithProcess returns a node of the given kind whose process slot
// for that kind is already set.
func NewWithProcess(kind Kind, fn Process) *Node {
	n := New(kind)
	n.process = fn
	return n
}

// Kind reports the node's compute kind.
func (n *Node) Kind() Kind { return n.kind }

// SetCPUProcess registers fn as the CPU process function. On a GPU node
// the registration is dropped: only the function matching the node's
// own kind is ever invoked, so the unmatched slot is not retained.
func (n *Node) SetCPUProcess(fn Process) {
	if n.kind == CPU {
		n.process = fn
	}
}

// SetGPUProcess registers fn as the GPU process function. On a CPU node
// the registration is dropped.
func (n *Node) SetGPUProcess(fn Process) {
	if n.kind == GPU {
		n.process = fn
	}
}

// Execute invokes the process function matching the node's kind over
// the current transient input map, mutating the transient output map in
// place. It is a no-op when no matching function is set.
func (n *Node) Execute() error {
	if n.process == nil {
		return nil
	}
	return n.process(n.inputs, n.outputs)
}

// AddInput declares an input field, seeding it with a placeholder
// value. Declaring the same name again overwrites the placeholder and
// does not duplicate the declaration.
func (n *Node) AddInput(name string, placeholder value.Value) {
	n.inputs[name] = placeholder
}

// AddOutput declares an output field with a placeholder value. Like
// AddInput, it is idempotent per name.
func (n *Node) AddOutput(name string, placeholder value.Value) {
	n.outputs[name] = placeholder
}

// SetInput binds a record value to a declared input field.
func (n *Node) SetInput(name string, v value.Value) error {
	if _, ok := n.inputs[name]; !ok {
		return fmt.Errorf("%w: input %q", ErrFieldNotFound, name)
	}
	n.inputs[name] = v
	return nil
}

// SetOutput binds a value to a declared output field.
func (n *Node) SetOutput(name string, v value.Value) error {
	if _, ok := n.outputs[name]; !ok {
		return fmt.Errorf("%w: output %q", ErrFieldNotFound, name)
	}
	n.outputs[name] = v
	return nil
}

// Input returns the value currently bound to a declared input field.
func (n *Node) Input(name string) (value.Value, error) {
	v, ok := n.inputs[name]
	if !ok {
		return value.Value{}, fmt.Errorf("%w: input %q", ErrFieldNotFound, name)
	}
	return v, nil
}

// Output returns the value currently bound to a declared output field.
func (n *Node) Output(name string) (value.Value, error) {
	v, ok := n.outputs[name]
	if !ok {
		return value.Value{}, fmt.Errorf("%w: output %q", ErrFieldNotFound, name)
	}
	return v, nil
}

// InputFields returns the declared input field names in sorted order.
func (n *Node) InputFields() []string {
	return sortedKeys(n.inputs)
}

// OutputFields returns the declared output field names in sorted order.
func (n *Node) OutputFields() []string {
	return sortedKeys(n.outputs)
}

// HasInput reports whether the node declares the named input field.
func (n *Node) HasInput(name string) bool {
	_, ok := n.inputs[name]
	return ok
}

// HasOutput reports whether the node declares the named output field.
func (n *Node) HasOutput(name string) bool {
	_, ok := n.outputs[name]
	return ok
}

func sortedKeys(m map[string]value.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

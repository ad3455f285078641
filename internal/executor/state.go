package executor

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Task is a (nodeID, batchID) unit of scheduled work.
type Task struct {
	NodeID  int
	BatchID int
}

func (t Task) String() string {
	return fmt.Sprintf("node[%d]/batch[%d]", t.NodeID, t.BatchID)
}

// State is the scheduling state of one task.
type State int32

const (
	// Pending indicates the task is waiting for input fields to be
	// satisfied by seeding or propagation.
	Pending State = iota
	// Ready indicates every input field is satisfied and the task has
	// been enqueued.
	Ready
	// Executing indicates a worker is running the task.
	Executing
	// Propagated indicates the task executed and its outputs were
	// copied downstream. Terminal.
	Propagated
	// Failed indicates the task's node execution failed. Terminal.
	Failed
	// Skipped indicates an upstream task of the same batch failed
	// before this task became ready. Terminal.
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Executing:
		return "executing"
	case Propagated:
		return "propagated"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// taskState tracks one task's remaining unsatisfied input fields and
// its scheduling state. A task is enqueued exactly once, when the
// remaining counter reaches zero; there is no poll-and-requeue path.
type taskState struct {
	mu        sync.Mutex
	remaining int
	satisfied map[string]bool

	state    atomic.Int32
	skipOnce sync.Once
	err      error
}

func (ts *taskState) load() State {
	return State(ts.state.Load())
}

func (ts *taskState) store(s State) {
	ts.state.Store(int32(s))
}

func (ts *taskState) transition(from, to State) bool {
	return ts.state.CompareAndSwap(int32(from), int32(to))
}

// satisfy marks one input field satisfied and reports whether that
// made the task ready. Re-satisfying a field is a no-op, so a second
// propagation of the same field name never double-decrements.
func (ts *taskState) satisfy(field string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.satisfied[field] {
		return false
	}
	ts.satisfied[field] = true
	ts.remaining--
	return ts.remaining == 0
}

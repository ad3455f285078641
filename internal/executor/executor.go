// Package executor drives a graph to completion: it seeds root-node
// inputs from externally supplied batches, schedules (node, batch)
// tasks as their input fields become satisfied, and runs a fixed pool
// of workers that execute ready nodes and propagate their outputs
// downstream.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/incisors/dagflow/internal/batch"
	"github.com/incisors/dagflow/internal/ctxlog"
	"github.com/incisors/dagflow/internal/graph"
	"github.com/incisors/dagflow/internal/taskq"
)

// errSkipped marks tasks abandoned because an upstream task of the same
// batch failed. It is a symptom, never a root cause.
var errSkipped = errors.New("skipped due to upstream failure")

// Executor runs a graph over a fixed set of input batches. An Executor
// is single-use: construct, Run once, then read results from the
// graph's storage and failures from Failures.
type Executor struct {
	graph      *graph.Graph
	inputs     []map[string]*batch.Batch
	numWorkers int

	queue    *taskq.Queue[Task]
	tasks    map[Task]*taskState
	order    []Task
	inflight atomic.Int64

	// nodeLocks serialises use of one node's transient field maps when
	// the same node executes for several batches concurrently.
	nodeLocks []sync.Mutex

	failMu   sync.Mutex
	failures map[Task]error
}

// New builds an executor for the graph and the ordered list of
// per-batch root-input field maps. It initializes the graph's batch
// storage for len(inputs) batches and copies every field of each input
// map into every root node's storage cell for that batch, overwriting
// placeholders. workers <= 0 selects the available hardware
// parallelism.
func New(g *graph.Graph, inputs []map[string]*batch.Batch, workers int) (*Executor, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g.InitMiniBatches(len(inputs))
	for batchID, fields := range inputs {
		for _, nodeID := range g.RootNodes() {
			for name, mb := range fields {
				if err := g.SetMiniBatch(nodeID, batchID, name, mb.Clone()); err != nil {
					return nil, fmt.Errorf("seeding root %d batch %d field %q: %w", nodeID, batchID, name, err)
				}
			}
		}
	}

	e := &Executor{
		graph:      g,
		inputs:     inputs,
		numWorkers: workers,
		queue:      taskq.New[Task](),
		tasks:      make(map[Task]*taskState),
		failures:   make(map[Task]error),
		nodeLocks:  make([]sync.Mutex, g.Size()),
	}
	e.buildTaskSet()
	return e, nil
}

// buildTaskSet enumerates the full cartesian product of node ids and
// batch ids (node-major, batch-minor) and initializes each task's
// remaining-input counter from the post-seeding storage state.
func (e *Executor) buildTaskSet() {
	for nodeID := 0; nodeID < e.graph.Size(); nodeID++ {
		n, _ := e.graph.Node(nodeID)
		inputFields := n.InputFields()
		for batchID := 0; batchID < len(e.inputs); batchID++ {
			task := Task{NodeID: nodeID, BatchID: batchID}
			ts := &taskState{satisfied: make(map[string]bool, len(inputFields))}
			for _, field := range inputFields {
				if e.graph.IsPopulated(nodeID, batchID, field) {
					ts.satisfied[field] = true
				} else {
					ts.remaining++
				}
			}
			e.tasks[task] = ts
			e.order = append(e.order, task)
		}
	}
}

// Run executes the graph to completion and blocks until every worker
// has exited. It returns nil when all reachable tasks propagated, or an
// aggregate error naming the failed tasks and wrapping the first root
// cause.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("run_id", uuid.NewString())
	ctx = ctxlog.WithLogger(ctx, logger)

	logger.Debug("Seeding initial task set.",
		"tasks", len(e.order), "batches", len(e.inputs), "nodes", e.graph.Size())

	initial := 0
	for _, task := range e.order {
		ts := e.tasks[task]
		if ts.remaining == 0 {
			ts.store(Ready)
			e.inflight.Add(1)
			e.queue.Push(task)
			initial++
		}
	}
	logger.Debug("Initial ready tasks enqueued.", "count", initial)
	if initial == 0 {
		// Nothing can ever run; close so workers exit immediately.
		e.queue.Close()
	}

	var wg sync.WaitGroup
	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	logger.Debug("All workers exited.")

	e.logUnprocessed(ctx)
	return e.aggregateError()
}

// Failures returns the per-task errors recorded during Run, including
// tasks skipped because of an upstream failure.
func (e *Executor) Failures() map[Task]error {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	out := make(map[Task]error, len(e.failures))
	for task, err := range e.failures {
		out[task] = err
	}
	return out
}

// aggregateError mirrors the summary shape used for failed runs: list
// every task with a real failure and wrap the first one as root cause.
func (e *Executor) aggregateError() error {
	e.failMu.Lock()
	defer e.failMu.Unlock()

	var failed []Task
	for task, err := range e.failures {
		if !errors.Is(err, errSkipped) {
			failed = append(failed, task)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	sort.Slice(failed, func(i, j int) bool {
		if failed[i].NodeID != failed[j].NodeID {
			return failed[i].NodeID < failed[j].NodeID
		}
		return failed[i].BatchID < failed[j].BatchID
	})

	names := make([]string, len(failed))
	for i, task := range failed {
		names[i] = task.String()
	}
	return fmt.Errorf("execution failed for %s: %w", strings.Join(names, ", "), e.failures[failed[0]])
}

// logUnprocessed reports tasks whose inputs never became satisfied,
// for example a disconnected node with declared inputs. They are left
// pending instead of spinning a worker.
func (e *Executor) logUnprocessed(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for _, task := range e.order {
		if e.tasks[task].load() == Pending {
			logger.Warn("Task never became ready; inputs were never satisfied.",
				"node", task.NodeID, "batch", task.BatchID)
		}
	}
}

package executor

import (
	"context"
	"fmt"

	"github.com/incisors/dagflow/internal/ctxlog"
)

// worker is the processing loop for one pool member. A popped task is
// ready by construction, so there is no requeue path; the loop ends
// when the queue is closed and drained.
func (e *Executor) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx).With("worker_id", workerID)
	logger.Debug("Worker started.")

	for {
		task, ok := e.queue.WaitAndPop()
		if !ok {
			break
		}
		e.process(ctx, task)
		// This task and any tasks it enqueued are accounted for; the
		// last finisher closes the queue.
		if e.inflight.Add(-1) == 0 {
			e.queue.Close()
		}
	}
	logger.Debug("Worker finished.")
}

// process executes one ready task and propagates its outputs.
func (e *Executor) process(ctx context.Context, task Task) {
	logger := ctxlog.FromContext(ctx).With("node", task.NodeID, "batch", task.BatchID)
	ts := e.tasks[task]

	if !ts.transition(Ready, Executing) {
		// Skipped between enqueue and pop.
		logger.Debug("Task no longer runnable.", "state", ts.load().String())
		return
	}

	logger.Debug("Executing task.")
	if err := e.executeTask(task); err != nil {
		logger.Error("Task execution failed.", "error", err)
		ts.store(Failed)
		ts.err = err
		e.recordFailure(task, err)
		e.skipDownstream(ctx, task)
		return
	}

	e.propagate(ctx, task)
	ts.store(Propagated)
	logger.Debug("Task propagated.")
}

// executeTask runs the node's process function over every record of its
// input batches for the task's batch index: per declared input field,
// each record is bound to the node's transient input slot, the node is
// executed, and every declared output field's transient value is
// appended to that field's output batch. Input fields are iterated
// independently, each driving its own record loop. A panicking process
// function is captured as the task's failure instead of killing the
// worker.
func (e *Executor) executeTask(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node process panicked: %v", r)
		}
	}()

	n, err := e.graph.Node(task.NodeID)
	if err != nil {
		return err
	}

	e.nodeLocks[task.NodeID].Lock()
	defer e.nodeLocks[task.NodeID].Unlock()

	outputFields := n.OutputFields()
	for _, inputField := range n.InputFields() {
		inputMB, err := e.graph.MiniBatch(task.NodeID, task.BatchID, inputField)
		if err != nil {
			return err
		}
		for i := 0; i < inputMB.Len(); i++ {
			record, err := inputMB.At(i)
			if err != nil {
				return err
			}
			if err := n.SetInput(inputField, record); err != nil {
				return err
			}
			if err := n.Execute(); err != nil {
				return err
			}
			for _, outputField := range outputFields {
				out, err := n.Output(outputField)
				if err != nil {
					return err
				}
				outputMB, err := e.graph.MiniBatch(task.NodeID, task.BatchID, outputField)
				if err != nil {
					return err
				}
				outputMB.Append(out)
			}
		}
	}
	return nil
}

// propagate copies every output batch of the finished task into the
// same-named input cell of each downstream node for the same batch
// index, overwriting the previous cell contents, and enqueues any
// downstream task whose final input field this write satisfied.
func (e *Executor) propagate(ctx context.Context, task Task) {
	logger := ctxlog.FromContext(ctx)
	n, err := e.graph.Node(task.NodeID)
	if err != nil {
		return
	}

	for _, downstreamID := range e.graph.Downstream(task.NodeID) {
		downstream, err := e.graph.Node(downstreamID)
		if err != nil {
			continue
		}
		downstreamTask := Task{NodeID: downstreamID, BatchID: task.BatchID}
		ts := e.tasks[downstreamTask]

		for _, outputField := range n.OutputFields() {
			outputMB, err := e.graph.MiniBatch(task.NodeID, task.BatchID, outputField)
			if err != nil {
				continue
			}
			if err := e.graph.SetMiniBatch(downstreamID, task.BatchID, outputField, outputMB.Clone()); err != nil {
				logger.Error("Propagation write failed.", "downstream", downstreamID, "field", outputField, "error", err)
				continue
			}
			if !downstream.HasInput(outputField) {
				continue
			}
			if ts.satisfy(outputField) && ts.transition(Pending, Ready) {
				logger.Debug("Unlocking downstream task.", "downstream", downstreamID, "batch", task.BatchID)
				e.inflight.Add(1)
				e.queue.Push(downstreamTask)
			}
		}
	}
}

// skipDownstream recursively marks downstream tasks of the same batch
// as skipped. Skipped tasks were never enqueued (their failed upstream
// never satisfied them), so no in-flight accounting is needed.
func (e *Executor) skipDownstream(ctx context.Context, task Task) {
	logger := ctxlog.FromContext(ctx)
	for _, downstreamID := range e.graph.Downstream(task.NodeID) {
		downstreamTask := Task{NodeID: downstreamID, BatchID: task.BatchID}
		ts := e.tasks[downstreamTask]
		ts.skipOnce.Do(func() {
			if !ts.transition(Pending, Skipped) {
				return
			}
			err := fmt.Errorf("%w of %s", errSkipped, task)
			ts.err = err
			logger.Warn("Skipping downstream task due to upstream failure.",
				"node", downstreamID, "batch", task.BatchID, "upstream", task.NodeID)
			e.recordFailure(downstreamTask, err)
			e.skipDownstream(ctx, downstreamTask)
		})
	}
}

func (e *Executor) recordFailure(task Task, err error) {
	e.failMu.Lock()
	e.failures[task] = err
	e.failMu.Unlock()
}

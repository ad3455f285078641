// Package graph owns the pipeline topology: an append-only collection
// of nodes with a boolean adjacency matrix, cached root tracking, and
// the per-node per-batch field storage that execution reads and writes.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/incisors/dagflow/internal/ctxlog"
	"github.com/incisors/dagflow/internal/node"
)

// ErrNodeNotFound is returned for node ids outside [0, Size()).
var ErrNodeNotFound = errors.New("graph: node id out of range")

// ErrBatchNotFound is returned for batch ids outside the range set by
// the last InitMiniBatches call.
var ErrBatchNotFound = errors.New("graph: batch id out of range")

// ErrCellNotFound is returned when a storage cell for a field name was
// never initialized or seeded.
var ErrCellNotFound = errors.New("graph: no mini-batch for field")

// Graph is built single-threaded via AddNode/AddEdge, then moved into
// an executable state by InitMiniBatches. During execution only batch
// cells change; structural mutation is not permitted. Node ids are
// assigned in insertion order and never reused; there is no deletion.
type Graph struct {
	nodes     []*node.Node
	adjacency [][]bool
	roots     []int

	// storageMu guards batchData; workers write cells concurrently
	// during propagation.
	storageMu  sync.RWMutex
	batchData  [][]map[string]*cell
	batchCount int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends a node and returns its id. It grows the adjacency
// matrix, appends an empty storage row covering every existing batch
// index, and recomputes the root set. It never fails.
func (g *Graph) AddNode(n *node.Node) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, n)

	g.adjacency = append(g.adjacency, make([]bool, id+1))
	for i := range g.adjacency {
		for len(g.adjacency[i]) < len(g.nodes) {
			g.adjacency[i] = append(g.adjacency[i], false)
		}
	}

	g.storageMu.Lock()
	row := make([]map[string]*cell, g.batchCount)
	for b := range row {
		row[b] = make(map[string]*cell)
	}
	g.batchData = append(g.batchData, row)
	g.storageMu.Unlock()

	g.updateRoots()
	return id
}

// AddEdge adds a directed edge from -> to. It returns false, leaving
// the graph unchanged, when either id is out of range, when the edge
// would close a cycle, or when no output field name of the source is
// declared as an input field of the destination. One overlapping name
// is enough; full coverage of the destination's inputs is not required.
// The rejection reason is observable only in the logs.
func (g *Graph) AddEdge(ctx context.Context, from, to int) bool {
	logger := ctxlog.FromContext(ctx)
	if from < 0 || from >= len(g.nodes) || to < 0 || to >= len(g.nodes) {
		logger.Warn("Edge rejected: node id out of range.", "from", from, "to", to)
		return false
	}
	if g.createsCycle(from, to) {
		logger.Warn("Edge rejected: would close a cycle.", "from", from, "to", to)
		return false
	}
	if !g.matchingIO(from, to) {
		logger.Warn("Edge rejected: no matching output/input field name.", "from", from, "to", to)
		return false
	}

	g.adjacency[from][to] = true
	g.updateRoots()
	logger.Debug("Edge added.", "from", from, "to", to)
	return true
}

// EdgeExists reports whether the edge from -> to is present.
func (g *Graph) EdgeExists(from, to int) bool {
	return from >= 0 && from < len(g.nodes) &&
		to >= 0 && to < len(g.nodes) && g.adjacency[from][to]
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (*node.Node, error) {
	if id < 0 || id >= len(g.nodes) {
		return nil, fmt.Errorf("%w: %d (size %d)", ErrNodeNotFound, id, len(g.nodes))
	}
	return g.nodes[id], nil
}

// Size reports the number of nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// HasCycle reports whether the adjacency relation contains a cycle,
// using depth-first traversal with a recursion-stack marker. O(V+E).
func (g *Graph) HasCycle() bool {
	visited := make([]bool, len(g.nodes))
	onStack := make([]bool, len(g.nodes))

	var visit func(current int) bool
	visit = func(current int) bool {
		visited[current] = true
		onStack[current] = true
		for next := range g.nodes {
			if !g.adjacency[current][next] {
				continue
			}
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[current] = false
		return false
	}

	for id := range g.nodes {
		if !visited[id] && visit(id) {
			return true
		}
	}
	return false
}

// IsRoot reports whether no adjacency column entry targets the node.
func (g *Graph) IsRoot(id int) bool {
	for from := range g.nodes {
		if g.adjacency[from][id] {
			return false
		}
	}
	return true
}

// RootNodes returns the cached root set: exactly the indegree-zero node
// ids as of the last structural mutation.
func (g *Graph) RootNodes() []int {
	out := make([]int, len(g.roots))
	copy(out, g.roots)
	return out
}

// Downstream returns the ids reachable from id by a single edge, in
// ascending order.
func (g *Graph) Downstream(id int) []int {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}
	var out []int
	for to := range g.nodes {
		if g.adjacency[id][to] {
			out = append(out, to)
		}
	}
	return out
}

// createsCycle checks whether adding from -> to would close a cycle by
// temporarily setting the adjacency bit and running full detection.
func (g *Graph) createsCycle(from, to int) bool {
	g.adjacency[from][to] = true
	cyclic := g.HasCycle()
	g.adjacency[from][to] = false
	return cyclic
}

// matchingIO reports whether at least one output field name of the
// source node is declared as an input field of the destination.
func (g *Graph) matchingIO(from, to int) bool {
	dst := g.nodes[to]
	for _, name := range g.nodes[from].OutputFields() {
		if dst.HasInput(name) {
			return true
		}
	}
	return false
}

func (g *Graph) updateRoots() {
	g.roots = g.roots[:0]
	for id := range g.nodes {
		if g.IsRoot(id) {
			g.roots = append(g.roots, id)
		}
	}
}

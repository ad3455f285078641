package graph

import (
	"fmt"

	"github.com/incisors/dagflow/internal/batch"
)

// cell is one (node, batch, field) storage slot. populated records
// whether the slot was explicitly written by seeding or propagation, as
// opposed to the empty batch InitMiniBatches allocates; readiness is
// defined over populated slots only.
type cell struct {
	mb        *batch.Batch
	populated bool
}

// InitMiniBatches sizes the batch storage to cover every node, every
// batch index in [0, numBatches), and every declared input and output
// field of that node. Cells already populated, for example by root
// seeding, are preserved; every other declared cell is allocated an
// empty batch.
func (g *Graph) InitMiniBatches(numBatches int) {
	g.storageMu.Lock()
	defer g.storageMu.Unlock()

	g.batchCount = numBatches
	for len(g.batchData) < len(g.nodes) {
		g.batchData = append(g.batchData, nil)
	}

	for id, n := range g.nodes {
		row := g.batchData[id]
		for len(row) < numBatches {
			row = append(row, make(map[string]*cell))
		}
		g.batchData[id] = row

		for b := 0; b < numBatches; b++ {
			cells := row[b]
			for _, name := range n.InputFields() {
				if _, ok := cells[name]; !ok {
					cells[name] = &cell{mb: batch.New()}
				}
			}
			for _, name := range n.OutputFields() {
				if _, ok := cells[name]; !ok {
					cells[name] = &cell{mb: batch.New()}
				}
			}
		}
	}
}

// BatchCount reports the batch count set by the last InitMiniBatches.
func (g *Graph) BatchCount() int {
	g.storageMu.RLock()
	defer g.storageMu.RUnlock()
	return g.batchCount
}

// MiniBatch returns the batch stored for (nodeID, batchID, fieldName).
func (g *Graph) MiniBatch(nodeID, batchID int, fieldName string) (*batch.Batch, error) {
	g.storageMu.RLock()
	defer g.storageMu.RUnlock()

	if err := g.checkCellRange(nodeID, batchID); err != nil {
		return nil, err
	}
	c, ok := g.batchData[nodeID][batchID][fieldName]
	if !ok {
		return nil, fmt.Errorf("%w: node %d batch %d field %q", ErrCellNotFound, nodeID, batchID, fieldName)
	}
	return c.mb, nil
}

// NodeMiniBatches returns the per-batch field contents of one node as
// independent maps of field name to stored batch.
func (g *Graph) NodeMiniBatches(nodeID int) ([]map[string]*batch.Batch, error) {
	g.storageMu.RLock()
	defer g.storageMu.RUnlock()

	if nodeID < 0 || nodeID >= len(g.batchData) {
		return nil, fmt.Errorf("%w: %d (size %d)", ErrNodeNotFound, nodeID, len(g.batchData))
	}
	out := make([]map[string]*batch.Batch, len(g.batchData[nodeID]))
	for b, cells := range g.batchData[nodeID] {
		out[b] = make(map[string]*batch.Batch, len(cells))
		for name, c := range cells {
			out[b][name] = c.mb
		}
	}
	return out, nil
}

// SetMiniBatch overwrites the storage cell for (nodeID, batchID,
// fieldName) and marks it populated. Seeding and propagation both go
// through here so that concurrent writes to sibling fields of one node
// stay synchronized.
func (g *Graph) SetMiniBatch(nodeID, batchID int, fieldName string, mb *batch.Batch) error {
	g.storageMu.Lock()
	defer g.storageMu.Unlock()

	if err := g.checkCellRange(nodeID, batchID); err != nil {
		return err
	}
	g.batchData[nodeID][batchID][fieldName] = &cell{mb: mb, populated: true}
	return nil
}

// IsReady reports whether every declared input field of the node has a
// populated storage cell for the batch. Populated means explicitly
// written by seeding or propagation; the batch may still be empty.
func (g *Graph) IsReady(nodeID, batchID int) bool {
	g.storageMu.RLock()
	defer g.storageMu.RUnlock()

	if g.checkCellRange(nodeID, batchID) != nil {
		return false
	}
	cells := g.batchData[nodeID][batchID]
	for _, name := range g.nodes[nodeID].InputFields() {
		c, ok := cells[name]
		if !ok || !c.populated {
			return false
		}
	}
	return true
}

// IsPopulated reports whether one (nodeID, batchID, fieldName) cell has
// been explicitly written.
func (g *Graph) IsPopulated(nodeID, batchID int, fieldName string) bool {
	g.storageMu.RLock()
	defer g.storageMu.RUnlock()

	if g.checkCellRange(nodeID, batchID) != nil {
		return false
	}
	c, ok := g.batchData[nodeID][batchID][fieldName]
	return ok && c.populated
}

func (g *Graph) checkCellRange(nodeID, batchID int) error {
	if nodeID < 0 || nodeID >= len(g.batchData) {
		return fmt.Errorf("%w: %d (size %d)", ErrNodeNotFound, nodeID, len(g.batchData))
	}
	if batchID < 0 || batchID >= len(g.batchData[nodeID]) {
		return fmt.Errorf("%w: %d (count %d)", ErrBatchNotFound, batchID, len(g.batchData[nodeID]))
	}
	return nil
}

// Package hclgrid loads pipeline definitions from HCL. A pipeline file
// declares nodes with typed input/output fields, edges between them,
// and the ordered seed batches for root inputs; each output field
// carries an HCL expression evaluated per record with the node's input
// fields in scope.
package hclgrid

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/incisors/dagflow/internal/batch"
	"github.com/incisors/dagflow/internal/ctxlog"
	"github.com/incisors/dagflow/internal/graph"
	"github.com/incisors/dagflow/internal/node"
	"github.com/incisors/dagflow/internal/value"
)

// fileRoot decodes the top-level blocks of a pipeline file.
type fileRoot struct {
	Nodes   []*nodeBlock  `hcl:"node,block"`
	Edges   []*edgeBlock  `hcl:"edge,block"`
	Batches []*batchBlock `hcl:"batch,block"`
}

type nodeBlock struct {
	Name    string         `hcl:"name,label"`
	Kind    string         `hcl:"kind"`
	Inputs  []*inputBlock  `hcl:"input,block"`
	Outputs []*outputBlock `hcl:"output,block"`
}

type inputBlock struct {
	Name string `hcl:"name,label"`
}

type outputBlock struct {
	Name string         `hcl:"name,label"`
	Expr hcl.Expression `hcl:"expr"`
}

type edgeBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// batchBlock holds arbitrary field-name attributes; block order defines
// the batch index.
type batchBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Pipeline is the loaded, executable form of a pipeline file.
type Pipeline struct {
	Graph *graph.Graph
	// Inputs holds one field map per batch block, in file order.
	Inputs []map[string]*batch.Batch
	// NodeIDs maps node block labels to graph ids.
	NodeIDs map[string]int
}

// LoadFile parses and assembles the pipeline at path.
func LoadFile(ctx context.Context, path string) (*Pipeline, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing pipeline file %s: %w", path, diags)
	}
	return assemble(ctx, file.Body)
}

// Load parses and assembles pipeline source from memory; filename is
// used in diagnostics only.
func Load(ctx context.Context, src []byte, filename string) (*Pipeline, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing pipeline %s: %w", filename, diags)
	}
	return assemble(ctx, file.Body)
}

func assemble(ctx context.Context, body hcl.Body) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("decoding pipeline: %w", diags)
	}
	logger.Debug("Pipeline decoded.",
		"nodes", len(root.Nodes), "edges", len(root.Edges), "batches", len(root.Batches))

	p := &Pipeline{
		Graph:   graph.New(),
		NodeIDs: make(map[string]int, len(root.Nodes)),
	}

	for _, nb := range root.Nodes {
		n, err := buildNode(nb)
		if err != nil {
			return nil, err
		}
		id := p.Graph.AddNode(n)
		if _, dup := p.NodeIDs[nb.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %q", nb.Name)
		}
		p.NodeIDs[nb.Name] = id
		logger.Debug("Node added.", "name", nb.Name, "id", id, "kind", nb.Kind)
	}

	for _, eb := range root.Edges {
		fromID, ok := p.NodeIDs[eb.From]
		if !ok {
			return nil, fmt.Errorf("edge references unknown node %q", eb.From)
		}
		toID, ok := p.NodeIDs[eb.To]
		if !ok {
			return nil, fmt.Errorf("edge references unknown node %q", eb.To)
		}
		if !p.Graph.AddEdge(ctx, fromID, toID) {
			return nil, fmt.Errorf("edge %q -> %q rejected: would close a cycle or no output of %q matches an input of %q",
				eb.From, eb.To, eb.From, eb.To)
		}
	}

	for i, bb := range root.Batches {
		fields, err := buildBatch(bb)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		p.Inputs = append(p.Inputs, fields)
	}

	return p, nil
}

// buildNode turns a node block into a compute node whose process
// function evaluates each output expression with the input fields in
// scope as cty values.
func buildNode(nb *nodeBlock) (*node.Node, error) {
	var kind node.Kind
	switch nb.Kind {
	case "cpu":
		kind = node.CPU
	case "gpu":
		kind = node.GPU
	default:
		return nil, fmt.Errorf("node %q: unknown kind %q (want cpu or gpu)", nb.Name, nb.Kind)
	}

	outputs := make(map[string]hcl.Expression, len(nb.Outputs))
	for _, ob := range nb.Outputs {
		if _, dup := outputs[ob.Name]; dup {
			return nil, fmt.Errorf("node %q: duplicate output %q", nb.Name, ob.Name)
		}
		outputs[ob.Name] = ob.Expr
	}

	n := node.NewWithProcess(kind, evalProcess(nb.Name, outputs))
	for _, ib := range nb.Inputs {
		n.AddInput(ib.Name, value.Value{})
	}
	for _, ob := range nb.Outputs {
		n.AddOutput(ob.Name, value.Value{})
	}
	return n, nil
}

// evalProcess returns a process function evaluating the given output
// expressions per record.
func evalProcess(nodeName string, outputs map[string]hcl.Expression) node.Process {
	return func(in map[string]value.Value, out map[string]value.Value) error {
		vars := make(map[string]cty.Value, len(in))
		for name, v := range in {
			cv, err := toCty(v)
			if err != nil {
				return fmt.Errorf("node %q: input %q: %w", nodeName, name, err)
			}
			vars[name] = cv
		}
		evalCtx := &hcl.EvalContext{Variables: vars}

		for name, expr := range outputs {
			cv, diags := expr.Value(evalCtx)
			if diags.HasErrors() {
				return fmt.Errorf("node %q: evaluating output %q: %w", nodeName, name, diags)
			}
			v, err := fromCty(cv)
			if err != nil {
				return fmt.Errorf("node %q: output %q: %w", nodeName, name, err)
			}
			out[name] = v
		}
		return nil
	}
}

// buildBatch evaluates a batch block's attributes into named batches.
// Every attribute must be a list/tuple; each element becomes one record
// value.
func buildBatch(bb *batchBlock) (map[string]*batch.Batch, error) {
	attrs, diags := bb.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("reading batch attributes: %w", diags)
	}

	fields := make(map[string]*batch.Batch, len(attrs))
	for name, attr := range attrs {
		cv, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating field %q: %w", name, diags)
		}
		if !cv.Type().IsTupleType() && !cv.Type().IsListType() {
			return nil, fmt.Errorf("field %q: want a list of record values, got %s", name, cv.Type().FriendlyName())
		}
		mb := batch.New()
		mb.SetName(name)
		for it := cv.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			v, err := fromCty(elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			mb.Append(v)
		}
		fields[name] = mb
	}
	return fields, nil
}

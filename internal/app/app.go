// Package app wires the pipeline loader, graph, and executor into a
// runnable application: load the HCL pipeline, run it to completion,
// print every terminal node's output batches.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/incisors/dagflow/internal/ctxlog"
	"github.com/incisors/dagflow/internal/executor"
	"github.com/incisors/dagflow/internal/hclgrid"
)

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	logger *slog.Logger
	config *Config
}

// New returns an initialized App with its own isolated logger writing
// to logW; pipeline results are printed to outW.
func New(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")
	return &App{outW: outW, logW: logW, logger: logger, config: cfg}
}

// Run loads the pipeline, executes every batch, and prints the output
// batches of each terminal node.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.", "grid_path", a.config.GridPath)

	pipeline, err := hclgrid.LoadFile(ctx, a.config.GridPath)
	if err != nil {
		return fmt.Errorf("loading pipeline: %w", err)
	}
	a.logger.Info("Pipeline loaded.",
		"nodes", pipeline.Graph.Size(), "batches", len(pipeline.Inputs))

	exec, err := executor.New(pipeline.Graph, pipeline.Inputs, a.config.WorkerCount)
	if err != nil {
		return fmt.Errorf("preparing executor: %w", err)
	}
	if err := exec.Run(ctx); err != nil {
		return err
	}
	a.logger.Info("Pipeline completed.")

	return a.printResults(pipeline)
}

// printResults writes the output batches of every terminal node, per
// batch index, in node-name order.
func (a *App) printResults(pipeline *hclgrid.Pipeline) error {
	names := make([]string, 0, len(pipeline.NodeIDs))
	for name := range pipeline.NodeIDs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		id := pipeline.NodeIDs[name]
		if len(pipeline.Graph.Downstream(id)) > 0 {
			continue
		}
		n, err := pipeline.Graph.Node(id)
		if err != nil {
			return err
		}
		for batchID := range pipeline.Inputs {
			for _, field := range n.OutputFields() {
				mb, err := pipeline.Graph.MiniBatch(id, batchID, field)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.outW, "%s.%s[batch %d]:", name, field, batchID)
				for i := 0; i < mb.Len(); i++ {
					v, err := mb.At(i)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.outW, " %s", v)
				}
				fmt.Fprintln(a.outW)
			}
		}
	}
	return nil
}

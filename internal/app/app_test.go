package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePipeline = `
node "multiply" {
  kind = "cpu"

  input "x" {}

  output "y" {
    expr = x * 2
  }
}

node "divide" {
  kind = "cpu"

  input "y" {}

  output "z" {
    expr = y / 10
  }
}

edge {
  from = "multiply"
  to   = "divide"
}

batch {
  x = [1.0, 2.0, 3.0]
}
`

func writePipeline(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestAppRunPrintsTerminalOutputs(t *testing.T) {
	cfg, err := NewConfig(Config{
		GridPath:  writePipeline(t, samplePipeline),
		LogFormat: "text",
		LogLevel:  "error",
	})
	require.NoError(t, err)

	var outW, logW bytes.Buffer
	a := New(&outW, &logW, cfg)
	require.NoError(t, a.Run(context.Background()))

	// multiply feeds divide, so only divide's outputs are printed.
	assert.Equal(t, "divide.z[batch 0]: 0.2 0.4 0.6\n", outW.String())
}

func TestAppRunMissingPipelineFile(t *testing.T) {
	cfg, err := NewConfig(Config{
		GridPath:  filepath.Join(t.TempDir(), "absent.hcl"),
		LogFormat: "text",
		LogLevel:  "error",
	})
	require.NoError(t, err)

	var outW, logW bytes.Buffer
	a := New(&outW, &logW, cfg)
	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading pipeline")
}

func TestAppRunFailedPipeline(t *testing.T) {
	// divide by a string forces an evaluation error at run time.
	src := `
node "broken" {
  kind = "cpu"

  input "x" {}

  output "y" {
    expr = x / "nope"
  }
}

batch {
  x = [1.0]
}
`
	cfg, err := NewConfig(Config{
		GridPath:  writePipeline(t, src),
		LogFormat: "json",
		LogLevel:  "error",
	})
	require.NoError(t, err)

	var outW, logW bytes.Buffer
	a := New(&outW, &logW, cfg)
	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution failed")
	assert.Empty(t, outW.String(), "no results are printed for a failed run")
}

func TestNewConfigRequiresGridPath(t *testing.T) {
	_, err := NewConfig(Config{LogFormat: "text", LogLevel: "info"})
	require.Error(t, err)
}

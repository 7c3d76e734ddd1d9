package code

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

type fakeSandbox struct {
	lastCode    string
	lastInputs  map[string]any
	lastTimeout time.Duration
	result      *protocol.RunResult
}

func (f *fakeSandbox) Run(_ context.Context, code, _ string, inputs map[string]any, timeout time.Duration) (*protocol.RunResult, error) {
	f.lastCode = code
	f.lastInputs = inputs
	f.lastTimeout = timeout

	return f.result, nil
}

func newContext() *models.ExecutionContext {
	execCtx := models.NewExecutionContext("exec-1", &models.Workflow{ID: "wf-1"}, map[string]any{"n": float64(3)})
	execCtx.SetOutput(models.NewNodeOutput("prev", map[string]any{"text": "abc"}, time.Now().UTC()))

	return execCtx
}

func TestProcess_Success(t *testing.T) {
	sandbox := &fakeSandbox{result: &protocol.RunResult{
		Success: true,
		Output:  float64(9),
		Logs:    []string{"squared"},
	}}
	p := &Processor{sandbox: sandbox}

	node := &models.Node{
		ID:   "calc",
		Type: models.NodeTypeCode,
		Config: map[string]any{
			"code": "func Run(input map[string]any) (any, error) { return nil, nil }",
			"input": map[string]any{
				"n":    "{{input.n}}",
				"text": "{{prev.text}}",
			},
		},
	}

	output, err := p.Process(t.Context(), node, newContext())
	require.NoError(t, err)

	assert.Equal(t, models.NodeOutputSuccess, output.Status)
	assert.Equal(t, float64(9), output.Data["output"])
	assert.Equal(t, []string{"squared"}, output.Data["logs"])

	// Inputs were interpolated before the sandbox saw them.
	assert.Equal(t, map[string]any{"n": float64(3), "text": "abc"}, sandbox.lastInputs)
	assert.Equal(t, 10*time.Second, sandbox.lastTimeout)
}

func TestProcess_SandboxFailureIsNodeError(t *testing.T) {
	sandbox := &fakeSandbox{result: &protocol.RunResult{
		Success: false,
		Error:   "code timed out",
		Logs:    []string{"started"},
	}}
	p := &Processor{sandbox: sandbox}

	node := &models.Node{
		ID:     "calc",
		Type:   models.NodeTypeCode,
		Config: map[string]any{"code": "x"},
	}

	output, err := p.Process(t.Context(), node, newContext())
	require.NoError(t, err)

	assert.Equal(t, models.NodeOutputError, output.Status)
	assert.Equal(t, "code timed out", output.Error)
	assert.Equal(t, map[string]any{"logs": []string{"started"}}, output.Data)
}

func TestProcess_TimeoutConfig(t *testing.T) {
	sandbox := &fakeSandbox{result: &protocol.RunResult{Success: true}}
	p := &Processor{sandbox: sandbox}

	node := &models.Node{
		ID:   "calc",
		Type: models.NodeTypeCode,
		Config: map[string]any{
			"code":       "x",
			"timeout_ms": float64(2500),
		},
	}

	_, err := p.Process(t.Context(), node, newContext())
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, sandbox.lastTimeout)

	// Requests beyond the cap are clamped.
	node.Config["timeout_ms"] = float64(10 * 60 * 1000)

	_, err = p.Process(t.Context(), node, newContext())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, sandbox.lastTimeout)
}

func TestProcess_MissingCode(t *testing.T) {
	p := &Processor{sandbox: &fakeSandbox{}}
	node := &models.Node{ID: "calc", Type: models.NodeTypeCode, Config: map[string]any{}}

	output, err := p.Process(t.Context(), node, newContext())
	require.NoError(t, err)

	assert.Equal(t, models.NodeOutputError, output.Status)
	assert.Contains(t, output.Error, "'code'")
}

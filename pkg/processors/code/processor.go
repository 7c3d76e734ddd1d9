// Package code provides the sandboxed code execution processor.
package code

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
	"github.com/fluxion-io/fluxion/pkg/template"
)

const (
	defaultTimeout = 10 * time.Second
	maxTimeout     = 5 * time.Minute
)

// Processor runs user-supplied code in the configured sandbox with the
// interpolated input bound as a read-only value. A sandbox timeout is a
// normal node error, never a fatal engine error.
type Processor struct {
	sandbox protocol.Sandbox
}

func (p *Processor) Process(ctx context.Context, node *models.Node, execCtx *models.ExecutionContext) (*models.NodeOutput, error) {
	startedAt := time.Now().UTC()

	source, _ := node.Config["code"].(string)
	if source == "" {
		return models.NewNodeError(node.ID, "missing required field 'code'", startedAt), nil
	}

	language, _ := node.Config["language"].(string)
	if language == "" {
		language = "go"
	}

	inputs := map[string]any{}

	if tmpl, ok := node.Config["input"].(map[string]any); ok {
		resolved, err := template.ResolveMap(tmpl, execCtx)
		if err != nil {
			return models.NewNodeError(node.ID,
				fmt.Sprintf("failed to resolve code input: %v", err), startedAt), nil
		}

		inputs = resolved
	}

	result, err := p.sandbox.Run(ctx, source, language, inputs, p.timeout(node.Config))
	if err != nil {
		return models.NewNodeError(node.ID,
			fmt.Sprintf("sandbox execution failed: %v", err), startedAt), nil
	}

	if !result.Success {
		nodeOutput := models.NewNodeError(node.ID, result.Error, startedAt)
		if len(result.Logs) > 0 {
			nodeOutput.Data = map[string]any{"logs": result.Logs}
		}

		return nodeOutput, nil
	}

	return models.NewNodeOutput(node.ID, map[string]any{
		"output": result.Output,
		"logs":   result.Logs,
	}, startedAt), nil
}

func (p *Processor) timeout(config map[string]any) time.Duration {
	timeout := defaultTimeout

	if ms, ok := config["timeout_ms"].(float64); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	return timeout
}

package code

import (
	"errors"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Factory creates sandboxed code processors.
type Factory struct{}

func NewFactory() protocol.ProcessorFactory {
	return &Factory{}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.Processor, error) {
	if deps.Sandbox == nil {
		return nil, errors.New("code node requires a sandbox")
	}

	return &Processor{sandbox: deps.Sandbox}, nil
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeCode
}

func (f *Factory) Name() string {
	return "Code"
}

func (f *Factory) Description() string {
	return "Runs user-supplied code in an isolated sandbox with an execution time limit."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Source code to execute.",
			},
			"language": map[string]any{
				"type":        "string",
				"description": "Source language. Defaults to go.",
				"enum":        []any{"go"},
			},
			"input": map[string]any{
				"type":        "object",
				"description": "Values bound read-only into the sandbox. Supports {{...}} references.",
			},
			"timeout_ms": map[string]any{
				"type":        "number",
				"description": "Wall-clock limit in milliseconds. Defaults to 10000, capped at 300000.",
			},
		},
		"required": []any{"code"},
	}
}

package process

import (
	"errors"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Factory creates AI-invocation processors.
type Factory struct{}

func NewFactory() protocol.ProcessorFactory {
	return &Factory{}
}

func (f *Factory) Create(deps protocol.Dependencies) (protocol.Processor, error) {
	if deps.AI == nil {
		return nil, errors.New("process node requires an AI client")
	}

	if deps.Secrets == nil {
		return nil, errors.New("process node requires a secret store")
	}

	return &Processor{ai: deps.AI, secrets: deps.Secrets, logger: deps.Logger}, nil
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeProcess
}

func (f *Factory) Name() string {
	return "Process"
}

func (f *Factory) Description() string {
	return "Renders a prompt template from upstream data and invokes the configured AI provider."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ai_config_id": map[string]any{
				"type":        "string",
				"description": "Reference to the AI provider credentials to use.",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt template. Supports {{nodeId.field}} and {{input.field}} references.",
				"examples": []any{
					"Summarize: {{collect.text}}",
					"Classify the sentiment of {{input.comment}}",
				},
			},
			"system_prompt": map[string]any{"type": "string"},
			"model":         map[string]any{"type": "string"},
			"temperature":   map[string]any{"type": "number"},
			"max_tokens":    map[string]any{"type": "number"},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Provider call deadline in seconds. Defaults to 60.",
			},
		},
		"required": []any{"ai_config_id", "prompt"},
	}
}

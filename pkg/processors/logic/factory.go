package logic

import (
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Factory creates branching processors.
type Factory struct{}

func NewFactory() protocol.ProcessorFactory {
	return &Factory{}
}

func (f *Factory) Create(_ protocol.Dependencies) (protocol.Processor, error) {
	return &Processor{}, nil
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeLogic
}

func (f *Factory) Name() string {
	return "Logic"
}

func (f *Factory) Description() string {
	return "Evaluates conditions and routes execution to exactly one outgoing branch."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Single boolean expression; selects branch handle 'true' or 'false'.",
				"examples": []any{
					"{{input.x}} > 0",
					"{{classify.content}} == positive",
				},
			},
			"conditions": map[string]any{
				"type":        "array",
				"description": "Ordered branch candidates; the first truthy expression wins.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"handle":     map[string]any{"type": "string"},
						"expression": map[string]any{"type": "string"},
					},
					"required": []any{"handle", "expression"},
				},
			},
			"default": map[string]any{
				"type":        "string",
				"description": "Branch handle selected when no condition matches.",
			},
		},
	}
}

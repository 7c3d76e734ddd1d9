package output

import (
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Factory creates output processors.
type Factory struct{}

func NewFactory() protocol.ProcessorFactory {
	return &Factory{}
}

func (f *Factory) Create(_ protocol.Dependencies) (protocol.Processor, error) {
	return &Processor{}, nil
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeOutput
}

func (f *Factory) Name() string {
	return "Output"
}

func (f *Factory) Description() string {
	return "Formats upstream data into the run's declared output shape."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "object",
				"description": "Output shape. String values support {{...}} references.",
				"examples": []any{
					map[string]any{"result": "{{summarize.content}}"},
				},
			},
		},
		"required": []any{"template"},
	}
}

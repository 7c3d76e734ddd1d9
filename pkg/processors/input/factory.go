package input

import (
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Factory creates input processors.
type Factory struct{}

func NewFactory() protocol.ProcessorFactory {
	return &Factory{}
}

func (f *Factory) Create(_ protocol.Dependencies) (protocol.Processor, error) {
	return &Processor{}, nil
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeInput
}

func (f *Factory) Name() string {
	return "Input"
}

func (f *Factory) Description() string {
	return "Collects caller-supplied field values into the run, matched by declared field name."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "array",
				"description": "Declared input fields. Entries are field names or objects with name/required.",
				"items": map[string]any{
					"anyOf": []any{
						map[string]any{"type": "string"},
						map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":     map[string]any{"type": "string"},
								"required": map[string]any{"type": "boolean"},
							},
							"required": []any{"name"},
						},
					},
				},
			},
		},
		"required": []any{"fields"},
	}
}

package approval

import (
	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Factory creates approval processors.
type Factory struct{}

func NewFactory() protocol.ProcessorFactory {
	return &Factory{}
}

func (f *Factory) Create(_ protocol.Dependencies) (protocol.Processor, error) {
	return &Processor{}, nil
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeApproval
}

func (f *Factory) Name() string {
	return "Approval"
}

func (f *Factory) Description() string {
	return "Suspends the run until a human decision is recorded for the generated approval request."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message shown to approvers. Supports {{...}} references.",
			},
			"required_approvals": map[string]any{
				"type":        "number",
				"description": "Approving decisions needed before the request is approved. Defaults to 1.",
				"minimum":     1,
			},
			"timeout_hours": map[string]any{
				"type":        "number",
				"description": "Hours before the request expires. No expiry when omitted.",
			},
			"timeout_action": map[string]any{
				"type":        "string",
				"description": "Action applied when the request expires.",
				"enum":        []any{"approve", "reject", "leave"},
			},
		},
	}
}

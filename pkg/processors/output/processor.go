// Package output provides the terminal formatting processor.
package output

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/template"
)

// Processor formats upstream data into the run's declared output shape.
// OUTPUT nodes are terminal; the engine assembles the final result from
// their data.
type Processor struct{}

func (p *Processor) Process(_ context.Context, node *models.Node, execCtx *models.ExecutionContext) (*models.NodeOutput, error) {
	startedAt := time.Now().UTC()

	tmpl, ok := node.Config["template"].(map[string]any)
	if !ok {
		return models.NewNodeError(node.ID, "missing required field 'template'", startedAt), nil
	}

	data, err := template.ResolveMap(tmpl, execCtx)
	if err != nil {
		return models.NewNodeError(node.ID,
			fmt.Sprintf("failed to render output template: %v", err), startedAt), nil
	}

	return models.NewNodeOutput(node.ID, data, startedAt), nil
}

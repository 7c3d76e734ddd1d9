// Package input provides the processor that collects caller-supplied field values.
package input

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
)

// Processor copies caller-supplied values into the node's output,
// matched by declared field name. It never calls external services.
type Processor struct{}

func (p *Processor) Process(_ context.Context, node *models.Node, execCtx *models.ExecutionContext) (*models.NodeOutput, error) {
	startedAt := time.Now().UTC()

	fields, err := declaredFields(node.Config)
	if err != nil {
		return models.NewNodeError(node.ID, err.Error(), startedAt), nil
	}

	data := make(map[string]any, len(fields))

	for _, field := range fields {
		value, ok := execCtx.Input[field.Name]
		if !ok {
			if field.Required {
				return models.NewNodeError(node.ID,
					fmt.Sprintf("missing required input field %q", field.Name), startedAt), nil
			}

			continue
		}

		data[field.Name] = value
	}

	return models.NewNodeOutput(node.ID, data, startedAt), nil
}

// Field is one declared input of an INPUT node.
type Field struct {
	Name     string
	Required bool
}

func declaredFields(config map[string]any) ([]Field, error) {
	raw, ok := config["fields"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing required field 'fields'")
	}

	fields := make([]Field, 0, len(raw))

	for _, item := range raw {
		switch v := item.(type) {
		case string:
			fields = append(fields, Field{Name: v, Required: true})
		case map[string]any:
			name, _ := v["name"].(string)
			if name == "" {
				return nil, fmt.Errorf("input field entry is missing 'name'")
			}

			required := true
			if r, ok := v["required"].(bool); ok {
				required = r
			}

			fields = append(fields, Field{Name: name, Required: required})
		default:
			return nil, fmt.Errorf("input field entry must be a string or object, got %T", item)
		}
	}

	return fields, nil
}

// Package logic provides the conditional branching processor.
package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/template"
)

// Processor evaluates an ordered list of conditions against current
// data and selects exactly one branch handle. The engine traverses only
// the outgoing edge marked with that handle.
type Processor struct{}

// Condition is one branch candidate: when Expression evaluates truthy,
// Handle is selected.
type Condition struct {
	Handle     string
	Expression string
}

func (p *Processor) Process(_ context.Context, node *models.Node, execCtx *models.ExecutionContext) (*models.NodeOutput, error) {
	startedAt := time.Now().UTC()

	conditions, defaultHandle, err := parseConfig(node.Config)
	if err != nil {
		return models.NewNodeError(node.ID, err.Error(), startedAt), nil
	}

	for _, condition := range conditions {
		truthy, value, err := Evaluate(condition.Expression, execCtx)
		if err != nil {
			return models.NewNodeError(node.ID,
				fmt.Sprintf("condition evaluation failed for branch %q: %v", condition.Handle, err), startedAt), nil
		}

		if truthy {
			return models.NewNodeOutput(node.ID, map[string]any{
				models.LogicBranchKey: condition.Handle,
				"evaluated_value":     value,
			}, startedAt), nil
		}
	}

	if defaultHandle == "" {
		return models.NewNodeError(node.ID, "no condition matched and no default branch is configured", startedAt), nil
	}

	return models.NewNodeOutput(node.ID, map[string]any{
		models.LogicBranchKey: defaultHandle,
		"evaluated_value":     nil,
	}, startedAt), nil
}

// parseConfig accepts either the conditions list form or the single
// condition shorthand with fixed true/false handles.
func parseConfig(config map[string]any) ([]Condition, string, error) {
	if expression, ok := config["condition"].(string); ok && expression != "" {
		return []Condition{{Handle: "true", Expression: expression}}, "false", nil
	}

	raw, ok := config["conditions"].([]any)
	if !ok || len(raw) == 0 {
		return nil, "", fmt.Errorf("missing required field 'conditions' (or 'condition')")
	}

	conditions := make([]Condition, 0, len(raw))

	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("condition entry must be an object, got %T", item)
		}

		handle, _ := entry["handle"].(string)
		expression, _ := entry["expression"].(string)

		if handle == "" || expression == "" {
			return nil, "", fmt.Errorf("condition entry requires 'handle' and 'expression'")
		}

		conditions = append(conditions, Condition{Handle: handle, Expression: expression})
	}

	defaultHandle, _ := config["default"].(string)

	return conditions, defaultHandle, nil
}

// Evaluate resolves an expression against the execution context and
// coerces the result to a boolean. Supported forms are a single
// comparison (==, !=, >, >=, <, <=) between two operands, or a bare
// operand judged by truthiness. Operands may be {{...}} references or
// literals.
func Evaluate(expression string, execCtx *models.ExecutionContext) (bool, any, error) {
	lhs, op, rhs, found := splitComparison(expression)
	if !found {
		value, err := template.Resolve(expression, execCtx)
		if err != nil {
			return false, nil, err
		}

		return truthy(value), value, nil
	}

	left, err := template.Resolve(lhs, execCtx)
	if err != nil {
		return false, nil, err
	}

	right, err := template.Resolve(rhs, execCtx)
	if err != nil {
		return false, nil, err
	}

	result, err := compare(left, op, right)
	if err != nil {
		return false, nil, err
	}

	return result, left, nil
}

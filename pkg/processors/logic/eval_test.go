package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/models"
)

func evalContext() *models.ExecutionContext {
	workflow := &models.Workflow{ID: "wf-1"}

	execCtx := models.NewExecutionContext("exec-1", workflow, map[string]any{
		"x":      float64(5),
		"status": "active",
		"flag":   true,
	})

	execCtx.SetOutput(models.NewNodeOutput("score", map[string]any{
		"value": float64(0.75),
	}, time.Now().UTC()))

	return execCtx
}

func TestEvaluate_NumericComparisons(t *testing.T) {
	tests := []struct {
		expression string
		want       bool
	}{
		{"{{input.x}} >= 0", true},
		{"{{input.x}} > 5", false},
		{"{{input.x}} == 5", true},
		{"{{input.x}} != 5", false},
		{"{{input.x}} < 10", true},
		{"{{score.value}} <= 0.75", true},
	}

	for _, tt := range tests {
		truthy, _, err := Evaluate(tt.expression, evalContext())
		require.NoError(t, err, tt.expression)
		assert.Equal(t, tt.want, truthy, tt.expression)
	}
}

func TestEvaluate_StringComparison(t *testing.T) {
	truthy, value, err := Evaluate(`{{input.status}} == "active"`, evalContext())
	require.NoError(t, err)
	assert.True(t, truthy)
	assert.Equal(t, "active", value)

	truthy, _, err = Evaluate(`{{input.status}} != "active"`, evalContext())
	require.NoError(t, err)
	assert.False(t, truthy)
}

func TestEvaluate_BareOperandTruthiness(t *testing.T) {
	truthy, _, err := Evaluate("{{input.flag}}", evalContext())
	require.NoError(t, err)
	assert.True(t, truthy)

	truthy, _, err = Evaluate("{{input.x}}", evalContext())
	require.NoError(t, err)
	assert.True(t, truthy)
}

func TestTruthy_ZeroValuesAcrossIntWidths(t *testing.T) {
	assert.False(t, truthy(int(0)))
	assert.False(t, truthy(int32(0)))
	assert.False(t, truthy(int64(0)))
	assert.False(t, truthy(float64(0)))

	assert.True(t, truthy(int(1)))
	assert.True(t, truthy(int32(1)))
	assert.True(t, truthy(int64(-1)))
}

func TestEvaluate_ReferenceError(t *testing.T) {
	_, _, err := Evaluate("{{nothere.x}} > 1", evalContext())
	require.Error(t, err)
}

func TestProcess_SelectsFirstMatchingCondition(t *testing.T) {
	p := &Processor{}
	node := &models.Node{
		ID:   "route",
		Type: models.NodeTypeLogic,
		Config: map[string]any{
			"conditions": []any{
				map[string]any{"handle": "high", "expression": "{{score.value}} >= 0.9"},
				map[string]any{"handle": "medium", "expression": "{{score.value}} >= 0.5"},
			},
			"default": "low",
		},
	}

	output, err := p.Process(t.Context(), node, evalContext())
	require.NoError(t, err)

	assert.Equal(t, models.NodeOutputSuccess, output.Status)
	assert.Equal(t, "medium", output.Data[models.LogicBranchKey])
}

func TestProcess_FallsBackToDefault(t *testing.T) {
	p := &Processor{}
	node := &models.Node{
		ID:   "route",
		Type: models.NodeTypeLogic,
		Config: map[string]any{
			"conditions": []any{
				map[string]any{"handle": "high", "expression": "{{score.value}} >= 0.9"},
			},
			"default": "low",
		},
	}

	output, err := p.Process(t.Context(), node, evalContext())
	require.NoError(t, err)

	assert.Equal(t, "low", output.Data[models.LogicBranchKey])
}

func TestProcess_NoMatchWithoutDefaultFails(t *testing.T) {
	p := &Processor{}
	node := &models.Node{
		ID:   "route",
		Type: models.NodeTypeLogic,
		Config: map[string]any{
			"conditions": []any{
				map[string]any{"handle": "high", "expression": "{{score.value}} >= 0.9"},
			},
		},
	}

	output, err := p.Process(t.Context(), node, evalContext())
	require.NoError(t, err)

	assert.Equal(t, models.NodeOutputError, output.Status)
	assert.Contains(t, output.Error, "no condition matched")
}

func TestProcess_ConditionShorthand(t *testing.T) {
	p := &Processor{}
	node := &models.Node{
		ID:     "route",
		Type:   models.NodeTypeLogic,
		Config: map[string]any{"condition": "{{input.x}} > 100"},
	}

	output, err := p.Process(t.Context(), node, evalContext())
	require.NoError(t, err)

	assert.Equal(t, "false", output.Data[models.LogicBranchKey])
}

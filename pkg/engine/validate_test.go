package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/testutil"
)

func TestValidateGraph_EmptyGraph(t *testing.T) {
	_, err := ValidateGraph(testutil.CreateTestWorkflow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no nodes")
}

func TestValidateGraph_DuplicateNodeID(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("dup")),
			testutil.CreateTestNode(testutil.WithID("dup")),
		),
	)

	_, err := ValidateGraph(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestValidateGraph_UnknownNodeType(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("in")),
			testutil.CreateTestNode(testutil.WithID("weird"), testutil.WithType("TELEPORT")),
		),
	)

	_, err := ValidateGraph(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestValidateGraph_DanglingEdge(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(testutil.CreateTestNode(testutil.WithID("in"))),
		testutil.WithEdges(testutil.Edge("in", "ghost")),
	)

	_, err := ValidateGraph(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source node")
}

func TestValidateGraph_RequiresInputNode(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("out"), testutil.WithType(models.NodeTypeOutput)),
		),
	)

	_, err := ValidateGraph(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no INPUT node")
}

func TestValidateGraph_RejectsCycle(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("in")),
			testutil.CreateTestNode(testutil.WithID("a"), testutil.WithType(models.NodeTypeLogic)),
			testutil.CreateTestNode(testutil.WithID("b"), testutil.WithType(models.NodeTypeOutput)),
		),
		testutil.WithEdges(
			testutil.Edge("in", "a"),
			testutil.Edge("a", "b"),
			testutil.Edge("b", "a"),
		),
	)

	_, err := ValidateGraph(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateGraph_ValidGraphNoWarnings(t *testing.T) {
	warnings, err := ValidateGraph(testutil.LinearWorkflow())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestUnreachableWarnings(t *testing.T) {
	// Reachability is judged from zero in-degree roots over the raw
	// edge set; a mutually-fed pair with no root path is unreachable.
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("in")),
			testutil.CreateTestNode(testutil.WithID("x")),
			testutil.CreateTestNode(testutil.WithID("y")),
		),
		testutil.WithEdges(
			testutil.Edge("x", "y"),
			testutil.Edge("y", "x"),
		),
	)

	warnings := unreachableWarnings(workflow)
	assert.Len(t, warnings, 2)
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/testutil"
)

func success(nodeID string) *models.NodeOutput {
	return models.NewNodeOutput(nodeID, map[string]any{}, time.Now().UTC())
}

func branchOutput(nodeID, handle string) *models.NodeOutput {
	return models.NewNodeOutput(nodeID, map[string]any{models.LogicBranchKey: handle}, time.Now().UTC())
}

func freshContext(workflow *models.Workflow) *models.ExecutionContext {
	return models.NewExecutionContext("exec-test", workflow, nil)
}

func TestWalker_DeclarationOrder(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("a")),
			testutil.CreateTestNode(testutil.WithID("b")),
		),
	)

	w := newWalker(workflow, freshContext(workflow))

	// Both are roots; the first declared wins.
	node := w.nextReady()
	require.NotNil(t, node)
	assert.Equal(t, "a", node.ID)
}

func TestWalker_JoinWaitsForAllIncoming(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("a")),
			testutil.CreateTestNode(testutil.WithID("b")),
			testutil.CreateTestNode(testutil.WithID("join"), testutil.WithType(models.NodeTypeOutput)),
		),
		testutil.WithEdges(testutil.Edge("a", "join"), testutil.Edge("b", "join")),
	)

	w := newWalker(workflow, freshContext(workflow))

	w.settle(workflow.NodeByID("a"), success("a"))
	w.cascadeSkips()

	// One incoming edge still pending: join is not ready, b is next.
	node := w.nextReady()
	require.NotNil(t, node)
	assert.Equal(t, "b", node.ID)

	w.settle(workflow.NodeByID("b"), success("b"))
	w.cascadeSkips()

	node = w.nextReady()
	require.NotNil(t, node)
	assert.Equal(t, "join", node.ID)
}

func TestWalker_JoinRunsWithOneInactiveIncoming(t *testing.T) {
	// check selects one branch; join still runs because its other
	// incoming edge went inactive rather than staying pending.
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("check"), testutil.WithType(models.NodeTypeLogic)),
			testutil.CreateTestNode(testutil.WithID("left")),
			testutil.CreateTestNode(testutil.WithID("right")),
			testutil.CreateTestNode(testutil.WithID("join"), testutil.WithType(models.NodeTypeOutput)),
		),
		testutil.WithEdges(
			testutil.BranchEdge("check", "left", "yes"),
			testutil.BranchEdge("check", "right", "no"),
			testutil.Edge("left", "join"),
			testutil.Edge("right", "join"),
		),
	)

	w := newWalker(workflow, freshContext(workflow))

	w.settle(workflow.NodeByID("check"), branchOutput("check", "yes"))
	w.cascadeSkips()

	assert.True(t, w.skipped["right"])

	node := w.nextReady()
	require.NotNil(t, node)
	assert.Equal(t, "left", node.ID)

	w.settle(workflow.NodeByID("left"), success("left"))
	w.cascadeSkips()

	node = w.nextReady()
	require.NotNil(t, node)
	assert.Equal(t, "join", node.ID)
}

func TestWalker_SkipCascades(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("check"), testutil.WithType(models.NodeTypeLogic)),
			testutil.CreateTestNode(testutil.WithID("a")),
			testutil.CreateTestNode(testutil.WithID("b")),
			testutil.CreateTestNode(testutil.WithID("c"), testutil.WithType(models.NodeTypeOutput)),
		),
		testutil.WithEdges(
			testutil.BranchEdge("check", "a", "other"),
			testutil.Edge("a", "b"),
			testutil.Edge("b", "c"),
		),
	)

	w := newWalker(workflow, freshContext(workflow))

	w.settle(workflow.NodeByID("check"), branchOutput("check", "selected"))
	w.cascadeSkips()

	// The entire chain behind the dead edge is skipped.
	assert.True(t, w.skipped["a"])
	assert.True(t, w.skipped["b"])
	assert.True(t, w.skipped["c"])
	assert.Nil(t, w.nextReady())
}

func TestWalker_StaleHandleIsDeadEdge(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("check"), testutil.WithType(models.NodeTypeLogic)),
			testutil.CreateTestNode(testutil.WithID("stale")),
		),
		testutil.WithEdges(testutil.BranchEdge("check", "stale", "renamed-long-ago")),
	)

	w := newWalker(workflow, freshContext(workflow))

	w.settle(workflow.NodeByID("check"), branchOutput("check", "current"))
	w.cascadeSkips()

	assert.True(t, w.skipped["stale"])
}

func TestWalker_ResumeReplaysSettledOutputs(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("in")),
			testutil.CreateTestNode(testutil.WithID("gate"), testutil.WithType(models.NodeTypeApproval)),
			testutil.CreateTestNode(testutil.WithID("out"), testutil.WithType(models.NodeTypeOutput)),
		),
		testutil.WithEdges(testutil.Edge("in", "gate"), testutil.Edge("gate", "out")),
	)

	execCtx := freshContext(workflow)
	execCtx.SetOutput(success("in"))
	execCtx.SetOutput(success("gate"))

	w := newWalker(workflow, execCtx)

	// Settled nodes are not handed out again; the walk continues at out.
	node := w.nextReady()
	require.NotNil(t, node)
	assert.Equal(t, "out", node.ID)
}

// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/fluxion-io/fluxion/pkg/models"
)

// CreateTestNode creates a test Node with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:   uuid.New().String(),
		Type: models.NodeTypeInput,
		Name: "Test Node",
		Config: map[string]any{
			"fields": []any{
				map[string]any{"name": "value", "type": "string"},
			},
		},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithType sets the node type.
func WithType(nodeType models.NodeType) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// Edge creates an edge between two node ids.
func Edge(source, target string) *models.Edge {
	return &models.Edge{
		ID:     "edge-" + uuid.New().String(),
		Source: source,
		Target: target,
	}
}

// BranchEdge creates an edge leaving a LOGIC node on a named branch.
func BranchEdge(source, target, handle string) *models.Edge {
	edge := Edge(source, target)
	edge.SourceHandle = handle

	return edge
}

// CreateTestWorkflow creates a workflow with defaults that can be
// overridden. Without overrides the graph is empty.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:          "wf-" + uuid.New().String(),
		Name:        "Test Workflow",
		Description: "A workflow for testing",
		Owner:       "test-user",
		Variables:   map[string]any{"env": "test"},
		Nodes:       []*models.Node{},
		Edges:       []*models.Edge{},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithNodes sets the workflow nodes.
func WithNodes(nodes ...*models.Node) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
	}
}

// WithEdges sets the workflow edges.
func WithEdges(edges ...*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Edges = edges
	}
}

// LinearWorkflow builds an INPUT -> OUTPUT graph that echoes the
// submitted fields, the smallest runnable workflow.
func LinearWorkflow() *models.Workflow {
	return CreateTestWorkflow(
		WithNodes(
			CreateTestNode(WithID("in"), WithType(models.NodeTypeInput), WithConfig(map[string]any{
				"fields": []any{
					map[string]any{"name": "value", "type": "string"},
				},
			})),
			CreateTestNode(WithID("out"), WithType(models.NodeTypeOutput), WithConfig(map[string]any{
				"template": map[string]any{
					"value": "{{in.value}}",
				},
			})),
		),
		WithEdges(Edge("in", "out")),
	)
}

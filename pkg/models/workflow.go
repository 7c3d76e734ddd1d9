// Package models defines the core domain models for node-based workflow execution.
package models

import "time"

// NodeType identifies the behavior bound to a node. The set is closed:
// graphs containing any other type are rejected at validation time.
type NodeType string

const (
	NodeTypeInput    NodeType = "INPUT"    // Collects caller-supplied field values
	NodeTypeProcess  NodeType = "PROCESS"  // Invokes an AI provider with a rendered prompt
	NodeTypeCode     NodeType = "CODE"     // Runs user code in a sandbox
	NodeTypeLogic    NodeType = "LOGIC"    // Evaluates a condition and selects one branch
	NodeTypeApproval NodeType = "APPROVAL" // Suspends the run pending a human decision
	NodeTypeOutput   NodeType = "OUTPUT"   // Formats upstream data into the run output
)

// KnownNodeTypes lists every node type the engine can execute.
var KnownNodeTypes = []NodeType{
	NodeTypeInput,
	NodeTypeProcess,
	NodeTypeCode,
	NodeTypeLogic,
	NodeTypeApproval,
	NodeTypeOutput,
}

// IsKnownNodeType reports whether t is part of the closed node type set.
func IsKnownNodeType(t NodeType) bool {
	for _, known := range KnownNodeTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Node represents a typed unit of work in a workflow graph. Config is
// opaque to the engine and handed to the matching processor.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Type   NodeType       `json:"type"   validate:"required"`
	Name   string         `json:"name"   validate:"required,min=1"`
	Config map[string]any `json:"config"`
}

// Edge connects two nodes. SourceHandle marks which LOGIC branch the
// edge represents; it is empty on edges leaving non-branching nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Workflow is an immutable-per-run snapshot of a workflow graph.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Nodes       []*Node        `json:"nodes"`
	Edges       []*Edge        `json:"edges"`
	Variables   map[string]any `json:"variables,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// NodesByType returns the workflow's nodes of the given type in
// declaration order.
func (w *Workflow) NodesByType(t NodeType) []*Node {
	var nodes []*Node

	for _, node := range w.Nodes {
		if node.Type == t {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

package models

import "time"

// NodeOutputStatus defines the possible outcomes of a single node execution.
type NodeOutputStatus string

const (
	NodeOutputSuccess   NodeOutputStatus = "success"
	NodeOutputError     NodeOutputStatus = "error"
	NodeOutputSuspended NodeOutputStatus = "suspended"
)

// LogicBranchKey names the NodeOutput data field where a LOGIC node
// records its selected branch handle. The engine traverses only the
// outgoing edge whose source handle matches this value.
const LogicBranchKey = "branch"

// TokenUsage reports model token consumption for AI-calling nodes.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NodeOutput is the result of one node execution within a run.
// Error is set iff Status is NodeOutputError.
type NodeOutput struct {
	NodeID      string           `json:"node_id"`
	Status      NodeOutputStatus `json:"status"`
	Data        map[string]any   `json:"data,omitempty"`
	TokenUsage  *TokenUsage      `json:"token_usage,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	DurationMs  int64            `json:"duration_ms"`
}

// NewNodeOutput returns a success output for the given node with timing
// derived from startedAt.
func NewNodeOutput(nodeID string, data map[string]any, startedAt time.Time) *NodeOutput {
	now := time.Now().UTC()

	return &NodeOutput{
		NodeID:      nodeID,
		Status:      NodeOutputSuccess,
		Data:        data,
		StartedAt:   startedAt,
		CompletedAt: now,
		DurationMs:  now.Sub(startedAt).Milliseconds(),
	}
}

// NewNodeError returns an error output for the given node.
func NewNodeError(nodeID, message string, startedAt time.Time) *NodeOutput {
	now := time.Now().UTC()

	return &NodeOutput{
		NodeID:      nodeID,
		Status:      NodeOutputError,
		Error:       message,
		StartedAt:   startedAt,
		CompletedAt: now,
		DurationMs:  now.Sub(startedAt).Milliseconds(),
	}
}

package models

import "time"

// ExecutionStatus is the lifecycle state of a single run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusSuspended ExecutionStatus = "SUSPENDED"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// AIConfig carries resolved AI provider credentials. Instances live in
// the per-run cache so the secret store is hit at most once per config id.
type AIConfig struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url,omitempty"`
}

// ExecutionContext is the mutable state of one run. It is owned
// exclusively by that run and never shared, so no locking is needed.
//
// A node's output is written at most once per run; re-execution must
// allocate a new context slot rather than mutate an existing one.
type ExecutionContext struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflow_id"`
	Input       map[string]any         `json:"input,omitempty"`
	NodeOutputs map[string]*NodeOutput `json:"node_outputs"`
	Variables   map[string]any         `json:"variables,omitempty"`
	AIConfigs   map[string]*AIConfig   `json:"ai_configs,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
}

// NewExecutionContext creates a context for a fresh run of the given
// workflow. Workflow variables become the initial global variables.
func NewExecutionContext(executionID string, workflow *Workflow, input map[string]any) *ExecutionContext {
	variables := make(map[string]any, len(workflow.Variables))
	for k, v := range workflow.Variables {
		variables[k] = v
	}

	return &ExecutionContext{
		ID:          executionID,
		WorkflowID:  workflow.ID,
		Input:       input,
		NodeOutputs: make(map[string]*NodeOutput),
		Variables:   variables,
		AIConfigs:   make(map[string]*AIConfig),
		StartedAt:   time.Now().UTC(),
	}
}

// Output returns the recorded output for a node, or nil.
func (c *ExecutionContext) Output(nodeID string) *NodeOutput {
	return c.NodeOutputs[nodeID]
}

// SetOutput records a node's output. It returns false when an output for
// the node already exists; the existing entry is left untouched.
func (c *ExecutionContext) SetOutput(output *NodeOutput) bool {
	if _, exists := c.NodeOutputs[output.NodeID]; exists {
		return false
	}

	c.NodeOutputs[output.NodeID] = output

	return true
}

// AIConfig returns the cached provider config for id, or nil.
func (c *ExecutionContext) AIConfig(id string) *AIConfig {
	if c.AIConfigs == nil {
		return nil
	}

	return c.AIConfigs[id]
}

// CacheAIConfig stores a resolved provider config in the per-run cache.
func (c *ExecutionContext) CacheAIConfig(config *AIConfig) {
	if c.AIConfigs == nil {
		c.AIConfigs = make(map[string]*AIConfig)
	}

	c.AIConfigs[config.ID] = config
}

// ExecutionError identifies the node whose failure ended a run.
type ExecutionError struct {
	NodeID  string `json:"node_id"`
	Message string `json:"message"`
}

// ExecutionResult is the terminal (or terminal-for-now, in the suspended
// case) outcome of a run. NodeOutputs holds the nodes that succeeded;
// a failing node is reported through Error only.
type ExecutionResult struct {
	ExecutionID string                 `json:"execution_id"`
	WorkflowID  string                 `json:"workflow_id"`
	Status      ExecutionStatus        `json:"status"`
	Output      map[string]any         `json:"output,omitempty"`
	NodeOutputs map[string]*NodeOutput `json:"node_outputs"`
	Error       *ExecutionError        `json:"error,omitempty"`
	ApprovalID  string                 `json:"approval_id,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
	DurationMs  int64                  `json:"duration_ms"`
}

// Suspension is the persisted snapshot of a suspended run, keyed by the
// approval request that caused it. Discarded snapshots can no longer be
// resumed.
type Suspension struct {
	ApprovalID  string            `json:"approval_id"`
	ExecutionID string            `json:"execution_id"`
	WorkflowID  string            `json:"workflow_id"`
	NodeID      string            `json:"node_id"`
	Context     *ExecutionContext `json:"context"`
	Workflow    *Workflow         `json:"workflow"`
	Discarded   bool              `json:"discarded"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Package protocol defines the interfaces and contracts for pluggable node processors.
package protocol

import (
	"context"
	"log/slog"

	"github.com/fluxion-io/fluxion/pkg/models"
)

// Processor is the executable behavior bound to a node type.
//
// Process runs one node against the current execution context. It may
// read earlier node outputs and global variables and may fill the
// per-run AI config cache, but must not write any output slot other
// than its own node's. Failures are reported through the returned
// output (status error) or the error value; the engine folds both into
// the same uniform failure shape and never lets them escape its
// boundary.
type Processor interface {
	Process(ctx context.Context, node *models.Node, execCtx *models.ExecutionContext) (*models.NodeOutput, error)
}

// Dependencies contains the collaborators processors may need. Unused
// fields stay nil; each factory declares what it requires.
type Dependencies struct {
	Logger  *slog.Logger
	AI      AIClient
	Sandbox Sandbox
	Secrets SecretStore
}

// ProcessorFactory creates a processor and provides metadata about the
// node type it serves. Adding a node type means registering one new
// factory; the engine is untouched.
type ProcessorFactory interface {
	// Create instantiates the processor with its dependencies.
	Create(deps Dependencies) (Processor, error)

	// Type returns the node type tag this factory serves.
	Type() models.NodeType

	// Name returns the human-readable name for this node type.
	Name() string

	// Description returns a description of what this node type does.
	Description() string

	// Schema returns the JSON schema for the node's config.
	Schema() map[string]any
}

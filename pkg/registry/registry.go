// Package registry maps node type tags to their processors.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fluxion-io/fluxion/pkg/models"
	"github.com/fluxion-io/fluxion/pkg/protocol"
)

// Registry holds one processor factory per node type. Processor
// instances are created lazily and cached; they are stateless across
// runs, all per-run state lives in the execution context.
type Registry struct {
	logger    *slog.Logger
	deps      protocol.Dependencies
	factories map[models.NodeType]protocol.ProcessorFactory

	mu         sync.Mutex
	processors map[models.NodeType]protocol.Processor
}

func NewRegistry(logger *slog.Logger, deps protocol.Dependencies) *Registry {
	if deps.Logger == nil {
		deps.Logger = logger
	}

	return &Registry{
		logger:     logger,
		deps:       deps,
		factories:  make(map[models.NodeType]protocol.ProcessorFactory),
		processors: make(map[models.NodeType]protocol.Processor),
	}
}

// Register adds a processor factory. Registering the same type twice
// replaces the previous factory and drops its cached instance.
func (r *Registry) Register(factory protocol.ProcessorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.Type()] = factory
	delete(r.processors, factory.Type())
}

// Processor returns the processor bound to the node type, or an error
// when the type is not registered.
func (r *Registry) Processor(nodeType models.NodeType) (protocol.Processor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if processor, ok := r.processors[nodeType]; ok {
		return processor, nil
	}

	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	processor, err := factory.Create(r.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor for node type %q: %w", nodeType, err)
	}

	r.processors[nodeType] = processor

	return processor, nil
}

// Registered reports whether a factory exists for the node type.
func (r *Registry) Registered(nodeType models.NodeType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.factories[nodeType]

	return ok
}

// ValidateConfig checks a node's config against the JSON schema
// declared by its factory. Factories returning a nil schema skip
// validation.
func (r *Registry) ValidateConfig(node *models.Node) error {
	r.mu.Lock()
	factory, ok := r.factories[node.Type]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("node type %q not registered", node.Type)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for node %s: %w", node.ID, err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid config for node %s: %s", node.ID, result.Errors()[0].String())
	}

	return nil
}

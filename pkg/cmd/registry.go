// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/fluxion-io/fluxion/pkg/ai"
	"github.com/fluxion-io/fluxion/pkg/protocol"
	"github.com/fluxion-io/fluxion/pkg/registry"
	"github.com/fluxion-io/fluxion/pkg/sandbox"
	"github.com/fluxion-io/fluxion/pkg/secrets"
)

// NewRegistry builds a processor registry with every built-in node type
// wired to the default collaborators.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	deps := protocol.Dependencies{
		Logger:  logger,
		AI:      ai.NewClient(logger),
		Sandbox: sandbox.NewRunner(logger),
		Secrets: secrets.NewEnvStore(),
	}

	reg := registry.NewRegistry(logger, deps)
	reg.RegisterDefaultProcessors()

	return reg
}

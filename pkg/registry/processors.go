package registry

import (
	"github.com/fluxion-io/fluxion/pkg/processors/approval"
	"github.com/fluxion-io/fluxion/pkg/processors/code"
	"github.com/fluxion-io/fluxion/pkg/processors/input"
	"github.com/fluxion-io/fluxion/pkg/processors/logic"
	"github.com/fluxion-io/fluxion/pkg/processors/output"
	"github.com/fluxion-io/fluxion/pkg/processors/process"
)

// RegisterDefaultProcessors registers the factories for every built-in
// node type.
func (r *Registry) RegisterDefaultProcessors() {
	r.Register(input.NewFactory())
	r.Register(process.NewFactory())
	r.Register(code.NewFactory())
	r.Register(logic.NewFactory())
	r.Register(approval.NewFactory())
	r.Register(output.NewFactory())
}

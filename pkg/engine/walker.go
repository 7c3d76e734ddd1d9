package engine

import (
	"github.com/fluxion-io/fluxion/pkg/models"
)

type edgeState int

const (
	// edgePending means the source node has not produced output yet.
	edgePending edgeState = iota
	// edgeActive means the source produced output and this edge carries it.
	edgeActive
	// edgeInactive means the edge will never carry output in this run,
	// either because a LOGIC node selected another branch or because the
	// source itself was skipped.
	edgeInactive
)

// walker tracks edge states during one run of the graph. Nodes are
// handed out one at a time in graph declaration order among ready
// nodes; a node is ready once none of its incoming edges are pending
// and at least one is active (join semantics). Nodes whose incoming
// edges all went inactive are skipped, which cascades to their own
// outgoing edges.
//
// The walker is rebuilt from the execution context on resume: settled
// node outputs replay their edge effects, so a resumed run continues
// exactly where it suspended.
type walker struct {
	workflow *models.Workflow
	states   []edgeState
	incoming map[string][]int
	outgoing map[string][]int
	done     map[string]bool
	skipped  map[string]bool
}

func newWalker(workflow *models.Workflow, execCtx *models.ExecutionContext) *walker {
	w := &walker{
		workflow: workflow,
		states:   make([]edgeState, len(workflow.Edges)),
		incoming: make(map[string][]int, len(workflow.Nodes)),
		outgoing: make(map[string][]int, len(workflow.Nodes)),
		done:     make(map[string]bool, len(workflow.Nodes)),
		skipped:  make(map[string]bool),
	}

	for i, edge := range workflow.Edges {
		w.incoming[edge.Target] = append(w.incoming[edge.Target], i)
		w.outgoing[edge.Source] = append(w.outgoing[edge.Source], i)
	}

	// Replay outputs already present in the context so a resumed run
	// picks up with the correct edge states.
	for _, node := range workflow.Nodes {
		output := execCtx.Output(node.ID)
		if output == nil || output.Status != models.NodeOutputSuccess {
			continue
		}

		w.settle(node, output)
	}

	w.cascadeSkips()

	return w
}

// nextReady returns the first node in declaration order that is ready
// to execute, or nil when no node is.
func (w *walker) nextReady() *models.Node {
	for _, node := range w.workflow.Nodes {
		if w.done[node.ID] {
			continue
		}

		if w.isReady(node.ID) {
			return node
		}
	}

	return nil
}

func (w *walker) isReady(nodeID string) bool {
	edges := w.incoming[nodeID]
	if len(edges) == 0 {
		return true
	}

	active := false

	for _, i := range edges {
		switch w.states[i] {
		case edgePending:
			return false
		case edgeActive:
			active = true
		case edgeInactive:
		}
	}

	return active
}

// settle records a successful node output and resolves its outgoing
// edges. For LOGIC nodes only the edge matching the selected branch
// handle becomes active; every other outgoing edge, including edges
// with stale handles, is dead.
func (w *walker) settle(node *models.Node, output *models.NodeOutput) {
	w.done[node.ID] = true

	branch, branched := "", false
	if node.Type == models.NodeTypeLogic {
		branch, _ = output.Data[models.LogicBranchKey].(string)
		branched = true
	}

	for _, i := range w.outgoing[node.ID] {
		if branched && w.workflow.Edges[i].SourceHandle != branch {
			w.states[i] = edgeInactive
		} else {
			w.states[i] = edgeActive
		}
	}
}

// cascadeSkips marks nodes whose every incoming edge is inactive as
// skipped and deactivates their outgoing edges, repeating until no
// further node changes state.
func (w *walker) cascadeSkips() {
	for {
		changed := false

		for _, node := range w.workflow.Nodes {
			if w.done[node.ID] || !w.allInactive(node.ID) {
				continue
			}

			w.done[node.ID] = true
			w.skipped[node.ID] = true

			for _, e := range w.outgoing[node.ID] {
				w.states[e] = edgeInactive
			}

			changed = true
		}

		if !changed {
			return
		}
	}
}

func (w *walker) allInactive(nodeID string) bool {
	edges := w.incoming[nodeID]
	if len(edges) == 0 {
		return false
	}

	for _, i := range edges {
		if w.states[i] != edgeInactive {
			return false
		}
	}

	return true
}

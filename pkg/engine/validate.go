package engine

import (
	"fmt"

	"github.com/fluxion-io/fluxion/pkg/models"
)

// ValidateGraph checks a workflow graph before execution. It returns
// warnings for conditions worth surfacing but not fatal, such as
// unreachable nodes, and an error for anything that must reject the run:
// unknown node types, dangling edges, missing INPUT nodes or cycles.
func ValidateGraph(workflow *models.Workflow) ([]string, error) {
	if len(workflow.Nodes) == 0 {
		return nil, fmt.Errorf("workflow %s has no nodes", workflow.ID)
	}

	nodeIDs := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("workflow %s contains a node without an id", workflow.ID)
		}

		if nodeIDs[node.ID] {
			return nil, fmt.Errorf("duplicate node id %q", node.ID)
		}

		nodeIDs[node.ID] = true

		if !models.IsKnownNodeType(node.Type) {
			return nil, fmt.Errorf("node %q has unsupported type %q", node.ID, node.Type)
		}
	}

	for _, edge := range workflow.Edges {
		if !nodeIDs[edge.Source] {
			return nil, fmt.Errorf("edge %q references unknown source node %q", edge.ID, edge.Source)
		}

		if !nodeIDs[edge.Target] {
			return nil, fmt.Errorf("edge %q references unknown target node %q", edge.ID, edge.Target)
		}
	}

	if len(workflow.NodesByType(models.NodeTypeInput)) == 0 {
		return nil, fmt.Errorf("workflow %s has no INPUT node", workflow.ID)
	}

	if err := rejectCycles(workflow); err != nil {
		return nil, err
	}

	return unreachableWarnings(workflow), nil
}

// rejectCycles runs Kahn's algorithm over the full edge set. Any node
// left with a positive in-degree afterwards sits on a cycle.
func rejectCycles(workflow *models.Workflow) error {
	inDegree := make(map[string]int, len(workflow.Nodes))
	outgoing := make(map[string][]string, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		inDegree[node.ID] = 0
	}

	for _, edge := range workflow.Edges {
		inDegree[edge.Target]++
		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
	}

	queue := make([]string, 0, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	visited := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		for _, target := range outgoing[current] {
			inDegree[target]--
			if inDegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	if visited != len(workflow.Nodes) {
		return fmt.Errorf("workflow %s contains a cycle", workflow.ID)
	}

	return nil
}

// unreachableWarnings flags nodes that no path from a zero in-degree
// node can reach. They are permitted but will never execute.
func unreachableWarnings(workflow *models.Workflow) []string {
	inDegree := make(map[string]int, len(workflow.Nodes))
	outgoing := make(map[string][]string, len(workflow.Nodes))

	for _, edge := range workflow.Edges {
		inDegree[edge.Target]++
		outgoing[edge.Source] = append(outgoing[edge.Source], edge.Target)
	}

	reachable := make(map[string]bool, len(workflow.Nodes))

	var queue []string

	for _, node := range workflow.Nodes {
		if inDegree[node.ID] == 0 {
			reachable[node.ID] = true
			queue = append(queue, node.ID)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range outgoing[current] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}

	var warnings []string

	for _, node := range workflow.Nodes {
		if !reachable[node.ID] {
			warnings = append(warnings, fmt.Sprintf("node %q is unreachable and will never execute", node.ID))
		}
	}

	return warnings
}

// Package template resolves {{...}} references for dynamic node configuration.
//
// Tokens take the form {{nodeId.field}}, {{input.field}} or
// {{vars.name}} and are resolved against the run's execution context.
// A string consisting of exactly one token keeps the referenced value's
// type; mixed content renders to a string.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fluxion-io/fluxion/pkg/models"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Namespaces reserved ahead of node ids when resolving a token's first
// segment.
const (
	NamespaceInput = "input"
	NamespaceVars  = "vars"
)

// Resolve renders a template string against the execution context.
func Resolve(input string, execCtx *models.ExecutionContext) (any, error) {
	matches := tokenPattern.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return input, nil
	}

	// Whole-string token: return the referenced value unconverted.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(input) {
		return lookup(strings.TrimSpace(input[matches[0][2]:matches[0][3]]), execCtx)
	}

	var (
		sb   strings.Builder
		last int
	)

	for _, m := range matches {
		sb.WriteString(input[last:m[0]])

		value, err := lookup(strings.TrimSpace(input[m[2]:m[3]]), execCtx)
		if err != nil {
			return nil, err
		}

		sb.WriteString(stringify(value))

		last = m[1]
	}

	sb.WriteString(input[last:])

	return sb.String(), nil
}

// ResolveMap renders every string value of a template map, recursing
// into nested maps and slices. Non-string leaves pass through.
func ResolveMap(tmpl map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	result := make(map[string]any, len(tmpl))

	for key, value := range tmpl {
		resolved, err := resolveValue(value, execCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve field %q: %w", key, err)
		}

		result[key] = resolved
	}

	return result, nil
}

func resolveValue(value any, execCtx *models.ExecutionContext) (any, error) {
	switch v := value.(type) {
	case string:
		return Resolve(v, execCtx)
	case map[string]any:
		return ResolveMap(v, execCtx)
	case []any:
		resolved := make([]any, len(v))

		for i, item := range v {
			r, err := resolveValue(item, execCtx)
			if err != nil {
				return nil, err
			}

			resolved[i] = r
		}

		return resolved, nil
	default:
		return value, nil
	}
}

// lookup resolves one dotted reference path. The first segment selects
// the namespace: "input", "vars", or a node id whose output data holds
// the remaining path.
func lookup(ref string, execCtx *models.ExecutionContext) (any, error) {
	segments := strings.Split(ref, ".")
	head := segments[0]

	switch head {
	case NamespaceInput:
		return walk(execCtx.Input, segments[1:], ref)
	case NamespaceVars:
		return walk(execCtx.Variables, segments[1:], ref)
	default:
		output := execCtx.Output(head)
		if output == nil {
			return nil, fmt.Errorf("reference %q: node %q has no output", ref, head)
		}

		return walk(output.Data, segments[1:], ref)
	}
}

func walk(data map[string]any, path []string, ref string) (any, error) {
	var current any = data

	for _, segment := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("reference %q: %q is not an object", ref, segment)
		}

		current, ok = m[segment]
		if !ok {
			return nil, fmt.Errorf("reference %q: field %q not found", ref, segment)
		}
	}

	return current, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

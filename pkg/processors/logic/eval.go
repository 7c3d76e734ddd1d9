package logic

import (
	"fmt"
	"strconv"
	"strings"
)

// comparison operators, longest first so ">=" is not split as ">".
var operators = []string{"==", "!=", ">=", "<=", ">", "<"}

// splitComparison finds the first top-level comparison operator in the
// expression. Operators inside {{...}} references are ignored.
func splitComparison(expression string) (lhs, op, rhs string, found bool) {
	depth := 0

	for i := 0; i < len(expression); i++ {
		switch {
		case strings.HasPrefix(expression[i:], "{{"):
			depth++
			i++
		case strings.HasPrefix(expression[i:], "}}"):
			depth--
			i++
		case depth == 0:
			for _, candidate := range operators {
				if strings.HasPrefix(expression[i:], candidate) {
					return strings.TrimSpace(expression[:i]),
						candidate,
						strings.TrimSpace(expression[i+len(candidate):]),
						true
				}
			}
		}
	}

	return "", "", "", false
}

func compare(left any, op string, right any) (bool, error) {
	// Numeric comparison whenever both sides are numbers.
	lnum, lok := toNumber(left)
	rnum, rok := toNumber(right)

	if lok && rok {
		switch op {
		case "==":
			return lnum == rnum, nil
		case "!=":
			return lnum != rnum, nil
		case ">":
			return lnum > rnum, nil
		case ">=":
			return lnum >= rnum, nil
		case "<":
			return lnum < rnum, nil
		case "<=":
			return lnum <= rnum, nil
		}
	}

	lstr := normalize(left)
	rstr := normalize(right)

	switch op {
	case "==":
		return lstr == rstr, nil
	case "!=":
		return lstr != rstr, nil
	case ">", ">=", "<", "<=":
		return false, fmt.Errorf("operator %q requires numeric operands, got %q and %q", op, lstr, rstr)
	}

	return false, fmt.Errorf("unsupported operator %q", op)
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return num, err == nil
	default:
		return 0, false
	}
}

// normalize strips surrounding quotes so `"active"` and `active`
// compare equal.
func normalize(value any) string {
	s := fmt.Sprintf("%v", value)
	s = strings.TrimSpace(s)

	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}

	return s
}

// truthy converts various result types to a boolean.
func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return false
	}
}

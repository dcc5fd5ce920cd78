package rules

import (
	"math"
	"strconv"
	"strings"
)

// Values flowing through evaluation are nil, bool, float64, string, []any and
// map[string]any. Integer types are accepted from records and widened.

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		if f, ok := numberValue(v); ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

// numberValue reports v as a float64 only when it already is numeric.
func numberValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// toNumber also accepts strings that parse as finite decimal numbers.
func toNumber(v any) (float64, bool) {
	if f, ok := numberValue(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func toText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	}
	if f, ok := numberValue(v); ok {
		return formatNumber(f), true
	}
	return "", false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func property(v any, name string) any {
	if m, ok := v.(map[string]any); ok {
		return m[name]
	}
	return nil
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := a.(bool); ok {
		y, ok := b.(bool)
		return ok && x == y
	}
	if _, ok := b.(bool); ok {
		return false
	}
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
	}
	x, okA := toText(a)
	y, okB := toText(b)
	return okA && okB && x == y
}

// compareValues orders a and b numerically when both parse as numbers and
// lexically otherwise. ISO-8601 dates sort correctly under the lexical order.
func compareValues(op tokenKind, a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	var cmp int
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			if math.IsNaN(x) || math.IsNaN(y) {
				return false
			}
			switch {
			case x < y:
				cmp = -1
			case x > y:
				cmp = 1
			}
			return orderHolds(op, cmp)
		}
	}
	x, okA := toText(a)
	y, okB := toText(b)
	if !okA || !okB {
		return false
	}
	return orderHolds(op, strings.Compare(x, y))
}

func orderHolds(op tokenKind, cmp int) bool {
	switch op {
	case tokLt:
		return cmp < 0
	case tokGt:
		return cmp > 0
	case tokLe:
		return cmp <= 0
	case tokGe:
		return cmp >= 0
	}
	return false
}

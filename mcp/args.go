package mcp

import "encoding/json"

// Str extracts a string argument, returning "" for anything else.
func Str(v any) string { s, _ := v.(string); return s }

// AsInt extracts an integer argument; JSON numbers arrive as float64.
func AsInt(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case int:
		return x
	case int64:
		return int(x)
	case json.Number:
		i, _ := x.Int64()
		return int(i)
	default:
		return 0
	}
}

// AsFloat extracts a float argument.
func AsFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	default:
		return 0
	}
}

// Has reports whether the argument was supplied at all, so handlers can
// distinguish "absent" from zero values on partial updates.
func Has(args map[string]any, key string) bool {
	_, ok := args[key]
	return ok
}

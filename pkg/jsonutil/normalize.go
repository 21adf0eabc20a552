// Package jsonutil normalizes values that the standard JSON encoder
// cannot represent faithfully before they are sent to HTTP callers.
package jsonutil

import (
	"encoding/json"
	"math"
	"time"
)

// Normalize converts v into a JSON-safe value: NaN and infinities become
// nil, times become ISO-8601 strings, byte slices become strings, and
// json.Number collapses to a plain number. Maps and slices are walked
// recursively.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return Normalize(float64(x))
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return Normalize(f)
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}

// NormalizeRows applies Normalize to every cell of a row set.
func NormalizeRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		norm := make(map[string]any, len(row))
		for k, v := range row {
			norm[k] = Normalize(v)
		}
		out[i] = norm
	}
	return out
}

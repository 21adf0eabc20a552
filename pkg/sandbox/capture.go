package sandbox

import (
	"fmt"
	"sync"

	"github.com/tabiq-ai/tabiq-engine/pkg/jsonutil"
)

// shapeResult coerces whatever the snippet left in its result variable
// into the tagged {"type", "value"} map the response parser expects.
func shapeResult(v any) map[string]any {
	v = jsonutil.Normalize(v)

	switch x := v.(type) {
	case map[string]any:
		if _, ok := x["type"]; ok {
			return x
		}
		return map[string]any{"type": "dataframe", "value": []any{x}}
	case []any:
		return map[string]any{"type": "dataframe", "value": x}
	case int64, float64:
		return map[string]any{"type": "number", "value": x}
	case bool:
		return map[string]any{"type": "string", "value": fmt.Sprintf("%v", x)}
	case string:
		return map[string]any{"type": "string", "value": x}
	case nil:
		return map[string]any{"type": "string", "value": ""}
	default:
		return map[string]any{"type": "string", "value": fmt.Sprintf("%v", x)}
	}
}

// cappedWriter keeps the first cap bytes of output and drops the rest,
// noting the truncation once.
type cappedWriter struct {
	mu        sync.Mutex
	buf       []byte
	cap       int
	truncated bool
}

func newCappedWriter(capBytes int) *cappedWriter {
	return &cappedWriter{cap: capBytes}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	remaining := w.cap - len(w.buf)
	if remaining > 0 {
		if len(p) < remaining {
			w.buf = append(w.buf, p...)
		} else {
			w.buf = append(w.buf, p[:remaining]...)
			w.truncated = true
		}
	} else if len(p) > 0 {
		w.truncated = true
	}
	// Report full length so interpreted fmt calls never see an error.
	return len(p), nil
}

func (w *cappedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.truncated {
		return string(w.buf) + "\n[output truncated]"
	}
	return string(w.buf)
}

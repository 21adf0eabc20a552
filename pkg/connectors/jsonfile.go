package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// JSONConnector reads a JSON file into one dataset. Two shapes are
// accepted: an array of objects (records), or an object mapping column
// names to equal-length arrays.
type JSONConnector struct {
	path      string
	opts      Options
	connected bool
}

var _ Connector = (*JSONConnector)(nil)

func NewJSON(path string, opts Options) *JSONConnector {
	return &JSONConnector{path: path, opts: opts}
}

func (c *JSONConnector) Connect(_ context.Context) error {
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("open json source: %w", err)
	}
	c.connected = true
	return nil
}

func (c *JSONConnector) Read(_ context.Context, _ string) ([]*dataset.Dataset, error) {
	if !c.connected {
		return nil, fmt.Errorf("connector not connected")
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err == nil {
		return c.fromRecords(records)
	}

	dec = json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var columnar map[string][]any
	if err := dec.Decode(&columnar); err == nil {
		return c.fromColumnar(columnar)
	}

	return nil, fmt.Errorf("%s: expected an array of objects or an object of arrays", c.path)
}

func (c *JSONConnector) fromRecords(records []map[string]any) ([]*dataset.Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no records", c.path)
	}
	// Column order is the sorted union of keys; JSON objects carry none.
	keySet := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			keySet[k] = true
		}
	}
	cols := make([]string, 0, len(keySet))
	for k := range keySet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(cols))
		for j, col := range cols {
			row[j] = decodeCell(rec[col])
		}
		rows[i] = row
	}
	ds := dataset.New(datasetName(c.path), c.opts.Description, cols, rows)
	return []*dataset.Dataset{finalize(ds, c.opts)}, nil
}

func (c *JSONConnector) fromColumnar(columnar map[string][]any) ([]*dataset.Dataset, error) {
	if len(columnar) == 0 {
		return nil, fmt.Errorf("%s has no columns", c.path)
	}
	cols := make([]string, 0, len(columnar))
	for k := range columnar {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	n := 0
	for _, vals := range columnar {
		if len(vals) > n {
			n = len(vals)
		}
	}
	rows := make([][]any, n)
	for i := range rows {
		row := make([]any, len(cols))
		for j, col := range cols {
			if i < len(columnar[col]) {
				row[j] = decodeCell(columnar[col][i])
			}
		}
		rows[i] = row
	}
	ds := dataset.New(datasetName(c.path), c.opts.Description, cols, rows)
	return []*dataset.Dataset{finalize(ds, c.opts)}, nil
}

func (c *JSONConnector) Close() error {
	c.connected = false
	return nil
}

func (c *JSONConnector) IsConnected() bool { return c.connected }

// decodeCell converts decoded JSON values to the cell model. Nested
// structures are re-serialized as text.
func decodeCell(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	default:
		return v
	}
}

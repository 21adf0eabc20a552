package connectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// ParquetConnector reads a flat Parquet file into one dataset. Nested
// groups are not supported; leaf values map one-to-one onto columns.
type ParquetConnector struct {
	path      string
	opts      Options
	connected bool
}

var _ Connector = (*ParquetConnector)(nil)

func NewParquet(path string, opts Options) *ParquetConnector {
	return &ParquetConnector{path: path, opts: opts}
}

func (c *ParquetConnector) Connect(_ context.Context) error {
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("open parquet source: %w", err)
	}
	c.connected = true
	return nil
}

func (c *ParquetConnector) Read(_ context.Context, _ string) ([]*dataset.Dataset, error) {
	if !c.connected {
		return nil, fmt.Errorf("connector not connected")
	}
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", c.path, err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.path, err)
	}

	fields := pf.Schema().Fields()
	cols := make([]string, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("%s: nested field %q not supported", c.path, field.Name())
		}
		cols[i] = field.Name()
	}

	var rows [][]any
	for _, rg := range pf.RowGroups() {
		rr := rg.Rows()
		buf := make([]parquet.Row, 256)
		for {
			n, err := rr.ReadRows(buf)
			for _, prow := range buf[:n] {
				cells := make([]any, len(cols))
				for _, v := range prow {
					idx := v.Column()
					if idx >= 0 && idx < len(cells) {
						cells[idx] = parquetCell(v)
					}
				}
				rows = append(rows, cells)
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				rr.Close()
				return nil, fmt.Errorf("read %s: %w", c.path, err)
			}
		}
		if err := rr.Close(); err != nil {
			return nil, fmt.Errorf("close row reader: %w", err)
		}
	}

	ds := dataset.New(datasetName(c.path), c.opts.Description, cols, rows)
	return []*dataset.Dataset{finalize(ds, c.opts)}, nil
}

func (c *ParquetConnector) Close() error {
	c.connected = false
	return nil
}

func (c *ParquetConnector) IsConnected() bool { return c.connected }

func parquetCell(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}

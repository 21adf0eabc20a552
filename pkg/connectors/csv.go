package connectors

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// CSVConnector reads one delimited file into one dataset. The first
// record is the header; short rows are padded with nulls.
type CSVConnector struct {
	path      string
	opts      Options
	connected bool
}

var _ Connector = (*CSVConnector)(nil)

func NewCSV(path string, opts Options) *CSVConnector {
	return &CSVConnector{path: path, opts: opts}
}

func (c *CSVConnector) Connect(_ context.Context) error {
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("open csv source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("csv source %s is a directory", c.path)
	}
	c.connected = true
	return nil
}

func (c *CSVConnector) Read(_ context.Context, _ string) ([]*dataset.Dataset, error) {
	if !c.connected {
		return nil, fmt.Errorf("connector not connected")
	}
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = c.delimiter()
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header row", c.path)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([][]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]any, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	ds := dataset.New(datasetName(c.path), c.opts.Description, header, rows)
	return []*dataset.Dataset{finalize(ds, c.opts)}, nil
}

func (c *CSVConnector) delimiter() rune {
	if c.opts.Delimiter != 0 {
		return c.opts.Delimiter
	}
	if strings.EqualFold(filepath.Ext(c.path), ".tsv") {
		return '\t'
	}
	return ','
}

func (c *CSVConnector) Close() error {
	c.connected = false
	return nil
}

func (c *CSVConnector) IsConnected() bool { return c.connected }

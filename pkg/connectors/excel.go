package connectors

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// ExcelConnector reads a workbook. Each non-empty sheet becomes a
// dataset; a single-sheet workbook is named after the file, additional
// sheets get a {file}_{sheet} suffix.
type ExcelConnector struct {
	path      string
	opts      Options
	connected bool
}

var _ Connector = (*ExcelConnector)(nil)

func NewExcel(path string, opts Options) *ExcelConnector {
	return &ExcelConnector{path: path, opts: opts}
}

func (c *ExcelConnector) Connect(_ context.Context) error {
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("open excel source: %w", err)
	}
	c.connected = true
	return nil
}

func (c *ExcelConnector) Read(_ context.Context, _ string) ([]*dataset.Dataset, error) {
	if !c.connected {
		return nil, fmt.Errorf("connector not connected")
	}
	book, err := excelize.OpenFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.path, err)
	}
	defer book.Close()

	base := datasetName(c.path)
	var out []*dataset.Dataset
	sheets := book.GetSheetList()
	for _, sheet := range sheets {
		grid, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(grid) < 1 || len(grid[0]) == 0 {
			continue
		}

		header := make([]string, len(grid[0]))
		for i, h := range grid[0] {
			header[i] = strings.TrimSpace(h)
		}
		rows := make([][]any, 0, len(grid)-1)
		for _, rec := range grid[1:] {
			row := make([]any, len(header))
			for i := range header {
				if i < len(rec) {
					row[i] = rec[i]
				}
			}
			rows = append(rows, row)
		}

		name := base
		if len(sheets) > 1 {
			name = base + "_" + datasetName(sheet)
		}
		ds := dataset.New(name, c.opts.Description, header, rows)
		out = append(out, finalize(ds, c.opts))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s has no non-empty sheets", c.path)
	}
	return out, nil
}

func (c *ExcelConnector) Close() error {
	c.connected = false
	return nil
}

func (c *ExcelConnector) IsConnected() bool { return c.connected }

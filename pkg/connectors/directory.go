package connectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// DirectoryConnector loads every file matching a glob (default *.csv)
// as its own dataset. When all loaded datasets share the same column
// set it also prepares a combined UNION ALL view, exposed through
// CombinedView after Read.
type DirectoryConnector struct {
	dir       string
	opts      Options
	connected bool

	viewName string
	viewSQL  string
}

var _ Connector = (*DirectoryConnector)(nil)

func NewDirectory(dir string, opts Options) *DirectoryConnector {
	return &DirectoryConnector{dir: dir, opts: opts}
}

func (c *DirectoryConnector) Connect(_ context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("open directory source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.dir)
	}
	c.connected = true
	return nil
}

func (c *DirectoryConnector) Read(ctx context.Context, _ string) ([]*dataset.Dataset, error) {
	if !c.connected {
		return nil, fmt.Errorf("connector not connected")
	}
	pattern := c.opts.Pattern
	if pattern == "" {
		pattern = "*.csv"
	}
	matches, err := filepath.Glob(filepath.Join(c.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files in %s match %q", c.dir, pattern)
	}

	fileOpts := c.opts
	fileOpts.Name = "" // per-file names stay derived from the file
	var out []*dataset.Dataset
	for _, path := range matches {
		loaded, err := Load(ctx, path, fileOpts)
		if err != nil {
			c.opts.logger().Warn("skipping unreadable file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, loaded...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no loadable files in %s", c.dir)
	}

	c.prepareCombinedView(out)
	return out, nil
}

// CombinedView returns the UNION ALL view prepared by the last Read.
// ok is false when fewer than two datasets loaded or their columns differ.
func (c *DirectoryConnector) CombinedView() (name, selectSQL string, ok bool) {
	return c.viewName, c.viewSQL, c.viewSQL != ""
}

func (c *DirectoryConnector) prepareCombinedView(datasets []*dataset.Dataset) {
	c.viewName, c.viewSQL = "", ""
	if len(datasets) < 2 {
		return
	}
	cols := datasets[0].Columns
	for _, ds := range datasets[1:] {
		if !sameColumns(cols, ds.Columns) {
			return
		}
	}

	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = `"` + strings.ReplaceAll(col, `"`, `""`) + `"`
	}
	colList := strings.Join(quoted, ", ")

	selects := make([]string, len(datasets))
	for i, ds := range datasets {
		selects[i] = fmt.Sprintf(`SELECT %s FROM "%s"`, colList, ds.Name)
	}

	name := c.opts.Name
	if name == "" {
		name = "combined_" + datasetName(c.dir)
	}
	c.viewName = name
	c.viewSQL = strings.Join(selects, " UNION ALL ")
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *DirectoryConnector) Close() error {
	c.connected = false
	return nil
}

func (c *DirectoryConnector) IsConnected() bool { return c.connected }

// Package connectors loads tabular sources into datasets. File formats
// (CSV/TSV, JSON, Excel, Parquet), directories of files, and Postgres
// share one Connector interface; the engine does not care where a
// dataset came from.
package connectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// Connector is a readable tabular source.
type Connector interface {
	// Connect prepares the source (opens the file, dials the database).
	Connect(ctx context.Context) error

	// Read loads datasets from the source. File connectors ignore the
	// query argument; the Postgres connector requires it.
	Read(ctx context.Context, query string) ([]*dataset.Dataset, error)

	// Close releases the source.
	Close() error

	// IsConnected reports whether Connect succeeded and Close has not run.
	IsConnected() bool
}

// Options tune how a source is loaded.
type Options struct {
	// Name overrides the derived dataset name.
	Name string

	// Description is attached to the loaded dataset(s).
	Description string

	// Delimiter overrides the CSV field separator. Zero means comma,
	// or tab for .tsv files.
	Delimiter rune

	// Pattern is the directory connector's glob, defaulting to *.csv.
	Pattern string

	// Schema, when set, is applied after load: transformations run in
	// order and column definitions overlay the inferred profile.
	Schema *dataset.SemanticSchema

	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// ForFile returns the connector for a path: the directory connector
// when the path is a directory, otherwise by file extension.
func ForFile(path string, opts Options) (Connector, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return NewDirectory(path, opts), nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return NewCSV(path, opts), nil
	case ".json":
		return NewJSON(path, opts), nil
	case ".xlsx", ".xlsm", ".xls":
		return NewExcel(path, opts), nil
	case ".parquet":
		return NewParquet(path, opts), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// View is a virtual table assembled over several loaded datasets.
type View struct {
	Name      string
	SelectSQL string
}

// Load is the one-shot convenience: connect, read, close.
func Load(ctx context.Context, path string, opts Options) ([]*dataset.Dataset, error) {
	datasets, _, err := LoadSource(ctx, path, opts)
	return datasets, err
}

// LoadSource is Load plus the combined view a directory load prepares
// when its files share one column set. The view is nil for single files
// and for directories with mixed schemas.
func LoadSource(ctx context.Context, path string, opts Options) ([]*dataset.Dataset, *View, error) {
	c, err := ForFile(path, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, nil, err
	}
	defer c.Close()

	datasets, err := c.Read(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	if dc, ok := c.(*DirectoryConnector); ok {
		if name, selectSQL, ok := dc.CombinedView(); ok {
			return datasets, &View{Name: name, SelectSQL: selectSQL}, nil
		}
	}
	return datasets, nil, nil
}

// datasetName derives a table-safe name from a file path.
func datasetName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "dataset"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name
}

// finalize applies the options' name, description, and semantic schema
// to a freshly built dataset.
func finalize(ds *dataset.Dataset, opts Options) *dataset.Dataset {
	if opts.Name != "" {
		ds.Name = opts.Name
	}
	if opts.Description != "" {
		ds.Description = opts.Description
	}
	if opts.Schema != nil {
		if opts.Schema.Description != "" && ds.Description == "" {
			ds.Description = opts.Schema.Description
		}
		ds.ApplyTransformations(opts.Schema.Transformations, opts.logger())
		ds.ApplyColumnDefs(opts.Schema.Columns)
	}
	return ds
}

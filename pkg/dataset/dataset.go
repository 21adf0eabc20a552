// Package dataset holds the in-memory relation model: a named table with
// an inferred semantic schema, per-column statistics, key candidates, and
// detected cross-dataset relationships.
//
// A Dataset is mutated only by the connector pipeline during load. Once a
// session is queryable its Dataset is immutable and safe for concurrent
// reads.
package dataset

import (
	"time"
)

// ColumnType is the semantic type inferred for a column.
type ColumnType string

const (
	TypeString      ColumnType = "string"
	TypeInteger     ColumnType = "integer"
	TypeFloat       ColumnType = "float"
	TypeBoolean     ColumnType = "boolean"
	TypeDate        ColumnType = "date"
	TypeDatetime    ColumnType = "datetime"
	TypeCategorical ColumnType = "categorical"
	TypeID          ColumnType = "id"
)

// ValueCount is one entry of a categorical top-k summary.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnMeta carries the profile of one column.
type ColumnMeta struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	NonNullRatio float64    `json:"non_null_ratio"`
	UniqueRatio  float64    `json:"unique_ratio"`
	Cardinality  int        `json:"cardinality"`

	// Numeric statistics; nil for non-numeric columns.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Mean *float64 `json:"mean,omitempty"`

	// Temporal range; nil for non-temporal columns.
	MinTime *time.Time `json:"min_time,omitempty"`
	MaxTime *time.Time `json:"max_time,omitempty"`

	// TopValues holds the most frequent values of a categorical column.
	TopValues []ValueCount `json:"top_values,omitempty"`

	// Samples holds up to three representative non-null values as text.
	Samples []string `json:"samples,omitempty"`

	// Description is either user-supplied via a semantic schema or
	// synthesized from the profile for prompt context.
	Description string `json:"description,omitempty"`
}

// RelationshipMethod records how a relationship was detected.
type RelationshipMethod string

const (
	// MethodName matched a foreign-key suffix against a dataset name.
	MethodName RelationshipMethod = "name"
	// MethodOverlap matched on distinct-value containment in the target key.
	MethodOverlap RelationshipMethod = "value_overlap"
)

// Relationship is a detected reference from one dataset column to
// another dataset's primary key.
type Relationship struct {
	SourceDataset string             `json:"source_dataset"`
	SourceColumn  string             `json:"source_column"`
	TargetDataset string             `json:"target_dataset"`
	TargetColumn  string             `json:"target_column"`
	Confidence    float64            `json:"confidence"`
	Method        RelationshipMethod `json:"method"`
}

// Dataset is a named in-memory relation with inferred metadata.
// Rows are row-major; cell values are one of nil, string, int64,
// float64, bool, or time.Time after profiling.
type Dataset struct {
	Name        string
	Description string
	Columns     []string
	Rows        [][]any

	Schema     map[string]ColumnType
	Meta       map[string]*ColumnMeta
	PrimaryKey string
	// ForeignKeyCandidates lists columns whose name and type suggest a
	// reference into another dataset.
	ForeignKeyCandidates []string
	// Relationships holds outgoing references; Incoming the reverse.
	Relationships []Relationship
	Incoming      []Relationship
}

// New builds a Dataset from raw columns and rows and profiles it:
// trial type conversion, statistics, and key candidates.
func New(name, description string, columns []string, rows [][]any) *Dataset {
	ds := &Dataset{
		Name:        name,
		Description: description,
		Columns:     columns,
		Rows:        rows,
	}
	ds.Profile()
	return ds
}

// FromRowMaps builds and profiles a Dataset from row objects, the
// shape SQL results arrive in. Column order is preserved from the
// caller.
func FromRowMaps(name string, columns []string, rows []map[string]any) *Dataset {
	raw := make([][]any, len(rows))
	for i, row := range rows {
		r := make([]any, len(columns))
		for j, col := range columns {
			r[j] = row[col]
		}
		raw[i] = r
	}
	return New(name, "", columns, raw)
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int { return len(d.Rows) }

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int { return len(d.Columns) }

// ColumnIndex returns the position of a column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of one column in row order.
func (d *Dataset) Column(name string) []any {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out
}

// RowMaps converts the table into row objects, the shape handed to the
// sandbox and the HTTP layer.
func (d *Dataset) RowMaps() []map[string]any {
	out := make([]map[string]any, len(d.Rows))
	for i, row := range d.Rows {
		m := make(map[string]any, len(d.Columns))
		for j, col := range d.Columns {
			if j < len(row) {
				m[col] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// NumericColumns returns columns typed integer or float.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns {
		switch d.Schema[c] {
		case TypeInteger, TypeFloat:
			out = append(out, c)
		}
	}
	return out
}

// TemporalColumns returns columns typed date or datetime.
func (d *Dataset) TemporalColumns() []string {
	var out []string
	for _, c := range d.Columns {
		switch d.Schema[c] {
		case TypeDate, TypeDatetime:
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns returns columns typed categorical.
func (d *Dataset) CategoricalColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if d.Schema[c] == TypeCategorical {
			out = append(out, c)
		}
	}
	return out
}

// Equal reports schema-level equality: same columns, types, row count,
// and inferred keys. Used to verify deterministic loading.
func (d *Dataset) Equal(other *Dataset) bool {
	if other == nil || d.Name != other.Name || len(d.Rows) != len(other.Rows) {
		return false
	}
	if len(d.Columns) != len(other.Columns) || d.PrimaryKey != other.PrimaryKey {
		return false
	}
	for i, c := range d.Columns {
		if other.Columns[i] != c || d.Schema[c] != other.Schema[c] {
			return false
		}
	}
	return true
}

package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TransformationKind enumerates the load-time column transformations.
// The dispatcher switches exhaustively over these; a kind outside the
// set passes the column through unchanged with a logged warning.
type TransformationKind string

const (
	KindRename            TransformationKind = "RENAME"
	KindFillNA            TransformationKind = "FILL_NA"
	KindDropNA            TransformationKind = "DROP_NA"
	KindConvertType       TransformationKind = "CONVERT_TYPE"
	KindMapValues         TransformationKind = "MAP_VALUES"
	KindClip              TransformationKind = "CLIP"
	KindNormalize         TransformationKind = "NORMALIZE"
	KindStandardize       TransformationKind = "STANDARDIZE"
	KindEncodeCategorical TransformationKind = "ENCODE_CATEGORICAL"
	KindExtractDate       TransformationKind = "EXTRACT_DATE"
	KindRound             TransformationKind = "ROUND"
	KindUppercase         TransformationKind = "UPPERCASE"
	KindReplace           TransformationKind = "REPLACE"
)

// TransformationRule applies one transformation to one column.
type TransformationRule struct {
	Kind   TransformationKind `yaml:"kind" json:"kind"`
	Column string             `yaml:"column" json:"column"`
	Params map[string]any     `yaml:"params,omitempty" json:"params,omitempty"`
}

// ColumnDef is a user-supplied column description.
type ColumnDef struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Nullable    bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	PrimaryKey  bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	Unique      bool   `yaml:"unique,omitempty" json:"unique,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// RelationDef declares a cross-dataset relation.
type RelationDef struct {
	SourceTable  string `yaml:"source_table" json:"source_table"`
	SourceColumn string `yaml:"source_column" json:"source_column"`
	TargetTable  string `yaml:"target_table" json:"target_table"`
	TargetColumn string `yaml:"target_column" json:"target_column"`
	Cardinality  string `yaml:"cardinality,omitempty" json:"cardinality,omitempty"`
}

// SemanticSchema is a declarative description applied at load time:
// column definitions, relations, and an ordered transformation list.
type SemanticSchema struct {
	Name            string               `yaml:"name,omitempty" json:"name,omitempty"`
	Description     string               `yaml:"description,omitempty" json:"description,omitempty"`
	Columns         []ColumnDef          `yaml:"columns,omitempty" json:"columns,omitempty"`
	Relations       []RelationDef        `yaml:"relations,omitempty" json:"relations,omitempty"`
	Transformations []TransformationRule `yaml:"transformations,omitempty" json:"transformations,omitempty"`
}

// LoadSemanticSchema parses a YAML semantic-schema document.
func LoadSemanticSchema(path string) (*SemanticSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read semantic schema: %w", err)
	}
	return ParseSemanticSchema(data)
}

// ParseSemanticSchema parses YAML bytes into a SemanticSchema.
func ParseSemanticSchema(data []byte) (*SemanticSchema, error) {
	var schema SemanticSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse semantic schema: %w", err)
	}
	return &schema, nil
}

// ApplyColumnDefs overlays user-supplied descriptions and key flags on
// the inferred profile. Types stay inferred; definitions refine intent.
func (d *Dataset) ApplyColumnDefs(defs []ColumnDef) {
	for _, def := range defs {
		meta, ok := d.Meta[def.Name]
		if !ok {
			continue
		}
		if def.Description != "" {
			meta.Description = def.Description
		}
		if def.PrimaryKey {
			d.PrimaryKey = def.Name
		}
	}
}

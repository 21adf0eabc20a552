// Package responses defines the typed answer taxonomy: every query,
// successful or not, produces exactly one Response variant.
package responses

import (
	"fmt"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// Tag discriminates the Response variants.
type Tag string

const (
	TagScalar Tag = "scalar"
	TagText   Tag = "text"
	TagTable  Tag = "table"
	TagChart  Tag = "chart"
	TagError  Tag = "error"
)

// ChartFormat discriminates chart payloads.
type ChartFormat string

const (
	// FormatApex carries a declarative ApexCharts config object.
	FormatApex ChartFormat = "apex"
	// FormatImage carries a path or data URI to a rendered image.
	FormatImage ChartFormat = "image"
)

// ChartSpec is a declarative chart payload. Exactly one of Config
// (apex) or Path (image) is set, matching Format.
type ChartSpec struct {
	Format    ChartFormat    `json:"format"`
	Config    map[string]any `json:"config,omitempty"`
	Path      string         `json:"path,omitempty"`
	ChartType string         `json:"chart_type,omitempty"`
}

// ErrorValue is the payload of an error response.
type ErrorValue struct {
	Kind     apperrors.Kind `json:"kind"`
	Message  string         `json:"message"`
	LastCode string         `json:"last_code,omitempty"`
}

// Response is the sum type returned by the analysis engine. The field
// matching Tag is set; all others are zero.
type Response struct {
	Tag    Tag              `json:"type"`
	Scalar float64          `json:"-"`
	Text   string           `json:"-"`
	Table  []map[string]any `json:"-"`
	Chart  *ChartSpec       `json:"-"`
	Err    *ErrorValue      `json:"-"`
}

// NewScalar builds a numeric response.
func NewScalar(v float64) *Response { return &Response{Tag: TagScalar, Scalar: v} }

// NewText builds a textual response.
func NewText(s string) *Response { return &Response{Tag: TagText, Text: s} }

// NewTable builds a tabular response.
func NewTable(rows []map[string]any) *Response {
	if rows == nil {
		rows = []map[string]any{}
	}
	return &Response{Tag: TagTable, Table: rows}
}

// NewChart builds a chart response.
func NewChart(spec *ChartSpec) *Response { return &Response{Tag: TagChart, Chart: spec} }

// NewError builds a typed failure response.
func NewError(kind apperrors.Kind, message, lastCode string) *Response {
	return &Response{Tag: TagError, Err: &ErrorValue{Kind: kind, Message: message, LastCode: lastCode}}
}

// Validate checks the tag/value invariant: the variant matching Tag must
// carry a non-null value.
func (r *Response) Validate() error {
	switch r.Tag {
	case TagScalar:
		return nil
	case TagText:
		if r.Text == "" {
			return fmt.Errorf("text response with empty body: %w", apperrors.ErrValueMismatch)
		}
	case TagTable:
		if r.Table == nil {
			return fmt.Errorf("table response without rows: %w", apperrors.ErrValueMismatch)
		}
	case TagChart:
		if r.Chart == nil {
			return fmt.Errorf("chart response without spec: %w", apperrors.ErrValueMismatch)
		}
		switch r.Chart.Format {
		case FormatApex:
			if len(r.Chart.Config) == 0 {
				return fmt.Errorf("apex chart without config: %w", apperrors.ErrValueMismatch)
			}
		case FormatImage:
			if r.Chart.Path == "" {
				return fmt.Errorf("image chart without path: %w", apperrors.ErrValueMismatch)
			}
		default:
			return fmt.Errorf("unknown chart format %q: %w", r.Chart.Format, apperrors.ErrValueMismatch)
		}
	case TagError:
		if r.Err == nil {
			return fmt.Errorf("error response without payload: %w", apperrors.ErrValueMismatch)
		}
	default:
		return fmt.Errorf("unknown response tag %q: %w", r.Tag, apperrors.ErrValueMismatch)
	}
	return nil
}

// IsError reports whether the response carries a typed failure.
func (r *Response) IsError() bool { return r.Tag == TagError }

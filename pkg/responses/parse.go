package responses

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// imagePathPattern accepts filesystem paths to common raster formats.
var imagePathPattern = regexp.MustCompile(`(?i)^[\w./\\~-]+\.(png|jpe?g|gif|svg|webp)$`)

// Parse accepts the raw {type, value} shape produced by sandboxed code
// and returns the typed variant. A value whose shape does not match its
// tag fails with apperrors.ErrValueMismatch.
func Parse(raw map[string]any) (*Response, error) {
	tagVal, ok := raw["type"]
	if !ok {
		return nil, fmt.Errorf("missing type tag: %w", apperrors.ErrValueMismatch)
	}
	tag, ok := tagVal.(string)
	if !ok {
		return nil, fmt.Errorf("type tag is %T, want string: %w", tagVal, apperrors.ErrValueMismatch)
	}
	value := raw["value"]

	switch normalizeTag(tag) {
	case TagScalar:
		n, ok := asNumber(value)
		if !ok {
			return nil, fmt.Errorf("scalar value %v (%T): %w", value, value, apperrors.ErrValueMismatch)
		}
		return NewScalar(n), nil

	case TagText:
		s, ok := value.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("text value %v (%T): %w", value, value, apperrors.ErrValueMismatch)
		}
		return NewText(s), nil

	case TagTable:
		rows, ok := asRows(value)
		if !ok {
			return nil, fmt.Errorf("table value %T: %w", value, apperrors.ErrValueMismatch)
		}
		return NewTable(rows), nil

	case TagChart:
		spec, err := parseChart(tag, value)
		if err != nil {
			return nil, err
		}
		return NewChart(spec), nil
	}
	return nil, fmt.Errorf("unknown tag %q: %w", tag, apperrors.ErrValueMismatch)
}

// normalizeTag maps synonyms and legacy tags onto the canonical set.
// "plot" is the legacy alias for an image-format chart; "number" and
// "dataframe" appear in older generated code.
func normalizeTag(tag string) Tag {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "scalar", "number":
		return TagScalar
	case "text", "string":
		return TagText
	case "table", "dataframe":
		return TagTable
	case "chart", "plot":
		return TagChart
	}
	return Tag(tag)
}

func parseChart(tag string, value any) (*ChartSpec, error) {
	// A bare string value is an image path (the legacy "plot" shape).
	if s, ok := value.(string); ok {
		if !isImageRef(s) {
			return nil, fmt.Errorf("chart path %q: %w", s, apperrors.ErrValueMismatch)
		}
		return &ChartSpec{Format: FormatImage, Path: s}, nil
	}

	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("chart value %T: %w", value, apperrors.ErrValueMismatch)
	}

	format, _ := m["format"].(string)
	if format == "" && strings.EqualFold(tag, "plot") {
		format = string(FormatImage)
	}

	switch ChartFormat(format) {
	case FormatApex:
		cfg, ok := m["config"].(map[string]any)
		if !ok || len(cfg) == 0 {
			return nil, fmt.Errorf("apex chart without config mapping: %w", apperrors.ErrValueMismatch)
		}
		chartType, _ := m["chart_type"].(string)
		if chartType == "" {
			if c, ok := cfg["chart"].(map[string]any); ok {
				chartType, _ = c["type"].(string)
			}
		}
		return &ChartSpec{Format: FormatApex, Config: cfg, ChartType: chartType}, nil

	case FormatImage:
		path, _ := m["path"].(string)
		if path == "" {
			path, _ = m["value"].(string)
		}
		if !isImageRef(path) {
			return nil, fmt.Errorf("image chart path %q: %w", path, apperrors.ErrValueMismatch)
		}
		return &ChartSpec{Format: FormatImage, Path: path}, nil
	}
	return nil, fmt.Errorf("chart format %q: %w", format, apperrors.ErrValueMismatch)
}

func isImageRef(s string) bool {
	return imagePathPattern.MatchString(s) || strings.HasPrefix(s, "data:image/")
}

// asNumber coerces the numeric types that reach us from the interpreter,
// JSON decoding, and SQL scanning.
func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// asRows coerces the row-set shapes generated code produces.
func asRows(v any) ([]map[string]any, bool) {
	switch x := v.(type) {
	case []map[string]any:
		return x, true
	case []any:
		rows := make([]map[string]any, 0, len(x))
		for _, item := range x {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			rows = append(rows, m)
		}
		return rows, true
	}
	return nil, false
}

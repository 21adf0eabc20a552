package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// datetimePatterns is the fixed set of layouts tried during inference,
// in order. Layouts whose time component is midnight-only classify as
// date rather than datetime.
var datetimePatterns = []struct {
	layout   string
	dateOnly bool
}{
	{time.RFC3339, false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", true},
	{"2006/01/02", true},
	{"02/01/2006", true},
	{"01-02-2006", true},
	{"2006-01", true},
}

// idNames are column names that mark a primary-key candidate by name alone.
var idNames = map[string]bool{
	"id": true, "key": true, "code": true, "pk": true,
	"uid": true, "uuid": true, "codigo": true,
}

// fkSuffixes mark foreign-key candidates by column name.
var fkSuffixes = []string{"_id", "_fk", "_key", "_code", "_ref"}

const (
	// categoricalUniqueRatio and categoricalMaxCardinality bound when a
	// low-cardinality string column is classified categorical.
	categoricalUniqueRatio    = 0.10
	categoricalMaxCardinality = 20

	// pkUniqueRatio is the uniqueness bar for key candidates.
	pkUniqueRatio = 0.99

	// topKValues caps the categorical frequency summary.
	topKValues = 5
)

// Profile infers the semantic type of every column, converts cell values
// to the inferred type, computes statistics, and picks key candidates.
// It is called on construction and again after transformations so the
// schema always matches the data.
func (d *Dataset) Profile() {
	d.Schema = make(map[string]ColumnType, len(d.Columns))
	d.Meta = make(map[string]*ColumnMeta, len(d.Columns))
	d.PrimaryKey = ""
	d.ForeignKeyCandidates = nil

	for idx, col := range d.Columns {
		meta := d.profileColumn(idx, col)
		d.Schema[col] = meta.Type
		d.Meta[col] = meta
	}

	d.pickPrimaryKey()
	d.pickForeignKeyCandidates()
	for _, col := range d.Columns {
		m := d.Meta[col]
		if m.Description == "" {
			m.Description = suggestDescription(col, m, col == d.PrimaryKey)
		}
	}
}

// profileColumn runs trial conversions in priority order and rewrites
// the column's cells to the winning type.
func (d *Dataset) profileColumn(idx int, name string) *ColumnMeta {
	values := make([]any, 0, len(d.Rows))
	for _, row := range d.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		} else {
			values = append(values, nil)
		}
	}

	nonNull := 0
	distinct := map[string]int{}
	for _, v := range values {
		if isNull(v) {
			continue
		}
		nonNull++
		distinct[cellString(v)]++
	}

	meta := &ColumnMeta{Name: name, Cardinality: len(distinct)}
	if len(values) > 0 {
		meta.NonNullRatio = float64(nonNull) / float64(len(values))
	}
	if nonNull > 0 {
		meta.UniqueRatio = float64(len(distinct)) / float64(nonNull)
	}

	colType, converted := inferType(name, values, meta)
	meta.Type = colType
	for i, row := range d.Rows {
		if idx < len(row) {
			row[idx] = converted[i]
		}
	}

	fillStats(meta, converted, distinct)
	fillSamples(meta, converted)
	return meta
}

// inferType tries conversions in the fixed priority order: id, integer,
// float, boolean, datetime, categorical, string.
func inferType(name string, values []any, meta *ColumnMeta) (ColumnType, []any) {
	// id by name: known id-name or FK-style suffix over convertible values.
	if looksLikeIDName(name) {
		if out, ok := convertAll(values, toIDValue); ok {
			return TypeID, out
		}
	}
	// id by shape: fully populated and essentially unique non-numeric keys
	// are detected later via the primary-key rule; here only typed trials.
	if out, ok := convertAll(values, toInt); ok {
		// An all-integer column that is unique and complete still counts
		// as integer; primary-key detection runs on the profile.
		return TypeInteger, out
	}
	if out, ok := convertAll(values, toFloat); ok {
		return TypeFloat, out
	}
	if out, ok := convertAll(values, toBool); ok {
		return TypeBoolean, out
	}
	if out, dateOnly, ok := convertAllTemporal(values); ok {
		if dateOnly {
			return TypeDate, out
		}
		return TypeDatetime, out
	}
	if meta.UniqueRatio < categoricalUniqueRatio && meta.Cardinality > 0 && meta.Cardinality < categoricalMaxCardinality {
		out, _ := convertAll(values, toText)
		return TypeCategorical, out
	}
	out, _ := convertAll(values, toText)
	return TypeString, out
}

func looksLikeIDName(name string) bool {
	lower := strings.ToLower(name)
	if idNames[lower] {
		return true
	}
	for _, suffix := range fkSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// pickPrimaryKey selects the first column that is complete and almost
// fully unique, or whose name is a known id-name.
func (d *Dataset) pickPrimaryKey() {
	for _, col := range d.Columns {
		m := d.Meta[col]
		if idNames[strings.ToLower(col)] && m.NonNullRatio == 1.0 {
			d.PrimaryKey = col
			return
		}
	}
	for _, col := range d.Columns {
		m := d.Meta[col]
		if m.NonNullRatio == 1.0 && m.UniqueRatio > pkUniqueRatio && len(d.Rows) > 0 {
			d.PrimaryKey = col
			return
		}
	}
}

func (d *Dataset) pickForeignKeyCandidates() {
	for _, col := range d.Columns {
		if col == d.PrimaryKey {
			continue
		}
		lower := strings.ToLower(col)
		for _, suffix := range fkSuffixes {
			if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
				switch d.Schema[col] {
				case TypeID, TypeInteger, TypeString:
					d.ForeignKeyCandidates = append(d.ForeignKeyCandidates, col)
				}
				break
			}
		}
	}
}

func fillStats(meta *ColumnMeta, values []any, distinct map[string]int) {
	switch meta.Type {
	case TypeInteger, TypeFloat:
		var sum float64
		var count int
		var min, max float64
		for _, v := range values {
			f, ok := asFloat(v)
			if !ok {
				continue
			}
			if count == 0 {
				min, max = f, f
			} else {
				min = math.Min(min, f)
				max = math.Max(max, f)
			}
			sum += f
			count++
		}
		if count > 0 {
			mean := sum / float64(count)
			meta.Min, meta.Max, meta.Mean = &min, &max, &mean
		}
	case TypeDate, TypeDatetime:
		var minT, maxT time.Time
		seen := false
		for _, v := range values {
			t, ok := v.(time.Time)
			if !ok {
				continue
			}
			if !seen {
				minT, maxT = t, t
				seen = true
				continue
			}
			if t.Before(minT) {
				minT = t
			}
			if t.After(maxT) {
				maxT = t
			}
		}
		if seen {
			meta.MinTime, meta.MaxTime = &minT, &maxT
		}
	case TypeCategorical:
		counts := make([]ValueCount, 0, len(distinct))
		for v, c := range distinct {
			counts = append(counts, ValueCount{Value: v, Count: c})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Value < counts[j].Value
		})
		if len(counts) > topKValues {
			counts = counts[:topKValues]
		}
		meta.TopValues = counts
	}
}

func fillSamples(meta *ColumnMeta, values []any) {
	for _, v := range values {
		if isNull(v) {
			continue
		}
		meta.Samples = append(meta.Samples, cellString(v))
		if len(meta.Samples) == 3 {
			return
		}
	}
}

func suggestDescription(name string, meta *ColumnMeta, isPK bool) string {
	if isPK {
		return fmt.Sprintf("unique identifier (%s)", meta.Type)
	}
	switch meta.Type {
	case TypeInteger, TypeFloat:
		if meta.Min != nil && meta.Max != nil {
			return fmt.Sprintf("numeric column ranging %g to %g", *meta.Min, *meta.Max)
		}
		return "numeric column"
	case TypeDate, TypeDatetime:
		if meta.MinTime != nil && meta.MaxTime != nil {
			return fmt.Sprintf("temporal column from %s to %s",
				meta.MinTime.Format("2006-01-02"), meta.MaxTime.Format("2006-01-02"))
		}
		return "temporal column"
	case TypeCategorical:
		return fmt.Sprintf("categorical column with %d distinct values", meta.Cardinality)
	case TypeID:
		return "reference identifier"
	case TypeBoolean:
		return "boolean flag"
	default:
		return fmt.Sprintf("text column (%d distinct values)", meta.Cardinality)
	}
}

// --- trial converters ---

// convertAll applies fn to every non-null value; fails if any value
// refuses the conversion or the column is entirely null.
func convertAll(values []any, fn func(any) (any, bool)) ([]any, bool) {
	out := make([]any, len(values))
	sawValue := false
	for i, v := range values {
		if isNull(v) {
			out[i] = nil
			continue
		}
		converted, ok := fn(v)
		if !ok {
			return nil, false
		}
		out[i] = converted
		sawValue = true
	}
	return out, sawValue
}

func convertAllTemporal(values []any) ([]any, bool, bool) {
	out := make([]any, len(values))
	dateOnly := true
	sawValue := false
	for i, v := range values {
		if isNull(v) {
			out[i] = nil
			continue
		}
		if t, ok := v.(time.Time); ok {
			out[i] = t
			sawValue = true
			if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
				dateOnly = false
			}
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, false, false
		}
		t, isDate, ok := ParseTemporal(strings.TrimSpace(s))
		if !ok {
			return nil, false, false
		}
		out[i] = t
		sawValue = true
		if !isDate {
			dateOnly = false
		}
	}
	return out, dateOnly, sawValue
}

// ParseTemporal tries the fixed pattern set and reports whether the
// matched layout carries no time component.
func ParseTemporal(s string) (time.Time, bool, bool) {
	for _, p := range datetimePatterns {
		if t, err := time.Parse(p.layout, s); err == nil {
			return t, p.dateOnly, true
		}
	}
	return time.Time{}, false, false
}

func toInt(v any) (any, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x), true
		}
		return nil, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	}
	return nil, false
}

func toFloat(v any) (any, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", "."))
		if s == "" {
			return nil, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return nil, false
}

func toBool(v any) (any, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "t", "y", "sim":
			return true, true
		case "false", "no", "f", "n", "nao", "não":
			return false, true
		}
	}
	return nil, false
}

func toIDValue(v any) (any, bool) {
	switch x := v.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, false
		}
		return strings.TrimSpace(x), true
	case int, int32, int64:
		return cellString(x), true
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10), true
		}
	}
	return nil, false
}

func toText(v any) (any, bool) {
	return cellString(v), true
}

// --- cell helpers ---

func isNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		trimmed := strings.TrimSpace(s)
		return trimmed == "" || strings.EqualFold(trimmed, "null") ||
			strings.EqualFold(trimmed, "na") || strings.EqualFold(trimmed, "nan")
	}
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	return false
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ApplyTransformations runs the rules in order against the dataset and
// re-profiles it afterwards so the inferred schema matches the
// transformed data. Unknown kinds and missing columns log a warning and
// leave the data untouched; an empty rule list is the identity.
func (d *Dataset) ApplyTransformations(rules []TransformationRule, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(rules) == 0 {
		return
	}
	log := logger.Named("transform")

	for _, rule := range rules {
		if d.ColumnIndex(rule.Column) < 0 {
			log.Warn("transformation references unknown column",
				zap.String("kind", string(rule.Kind)),
				zap.String("column", rule.Column))
			continue
		}
		switch rule.Kind {
		case KindRename:
			d.applyRename(rule)
		case KindFillNA:
			d.applyFillNA(rule)
		case KindDropNA:
			d.applyDropNA(rule)
		case KindConvertType:
			d.applyConvertType(rule, log)
		case KindMapValues:
			d.applyMapValues(rule)
		case KindClip:
			d.applyClip(rule)
		case KindNormalize:
			d.applyNormalize(rule)
		case KindStandardize:
			d.applyStandardize(rule)
		case KindEncodeCategorical:
			d.applyEncodeCategorical(rule)
		case KindExtractDate:
			d.applyExtractDate(rule)
		case KindRound:
			d.applyRound(rule)
		case KindUppercase:
			d.applyUppercase(rule)
		case KindReplace:
			d.applyReplace(rule)
		default:
			log.Warn("unknown transformation kind, column passed through",
				zap.String("kind", string(rule.Kind)),
				zap.String("column", rule.Column))
		}
	}

	d.Profile()
}

func (d *Dataset) applyRename(rule TransformationRule) {
	to, _ := rule.Params["to"].(string)
	if to == "" {
		return
	}
	idx := d.ColumnIndex(rule.Column)
	d.Columns[idx] = to
}

func (d *Dataset) applyFillNA(rule TransformationRule) {
	value := rule.Params["value"]
	idx := d.ColumnIndex(rule.Column)
	for _, row := range d.Rows {
		if isNull(row[idx]) {
			row[idx] = value
		}
	}
}

func (d *Dataset) applyDropNA(rule TransformationRule) {
	idx := d.ColumnIndex(rule.Column)
	kept := d.Rows[:0]
	for _, row := range d.Rows {
		if !isNull(row[idx]) {
			kept = append(kept, row)
		}
	}
	d.Rows = kept
}

func (d *Dataset) applyConvertType(rule TransformationRule, log *zap.Logger) {
	target, _ := rule.Params["to"].(string)
	idx := d.ColumnIndex(rule.Column)
	var fn func(any) (any, bool)
	switch ColumnType(target) {
	case TypeInteger:
		fn = toInt
	case TypeFloat:
		fn = toFloat
	case TypeBoolean:
		fn = toBool
	case TypeString:
		fn = toText
	default:
		log.Warn("unsupported conversion target", zap.String("to", target))
		return
	}
	for _, row := range d.Rows {
		if isNull(row[idx]) {
			continue
		}
		if converted, ok := fn(row[idx]); ok {
			row[idx] = converted
		}
	}
}

func (d *Dataset) applyMapValues(rule TransformationRule) {
	mapping, ok := rule.Params["mapping"].(map[string]any)
	if !ok {
		return
	}
	idx := d.ColumnIndex(rule.Column)
	for _, row := range d.Rows {
		if replacement, ok := mapping[cellString(row[idx])]; ok {
			row[idx] = replacement
		}
	}
}

func (d *Dataset) applyClip(rule TransformationRule) {
	min, hasMin := paramFloat(rule.Params, "min")
	max, hasMax := paramFloat(rule.Params, "max")
	idx := d.ColumnIndex(rule.Column)
	for _, row := range d.Rows {
		f, ok := asFloat(row[idx])
		if !ok {
			continue
		}
		if hasMin && f < min {
			row[idx] = min
		}
		if hasMax && f > max {
			row[idx] = max
		}
	}
}

// applyNormalize rescales to [0,1] by range; zero range is a no-op.
func (d *Dataset) applyNormalize(rule TransformationRule) {
	idx := d.ColumnIndex(rule.Column)
	min, max, _, count := columnMoments(d.Rows, idx)
	if count == 0 || max == min {
		return
	}
	for _, row := range d.Rows {
		if f, ok := asFloat(row[idx]); ok {
			row[idx] = (f - min) / (max - min)
		}
	}
}

// applyStandardize converts to z-scores; zero deviation is a no-op.
func (d *Dataset) applyStandardize(rule TransformationRule) {
	idx := d.ColumnIndex(rule.Column)
	_, _, mean, count := columnMoments(d.Rows, idx)
	if count == 0 {
		return
	}
	var variance float64
	for _, row := range d.Rows {
		if f, ok := asFloat(row[idx]); ok {
			variance += (f - mean) * (f - mean)
		}
	}
	std := math.Sqrt(variance / float64(count))
	if std == 0 {
		return
	}
	for _, row := range d.Rows {
		if f, ok := asFloat(row[idx]); ok {
			row[idx] = (f - mean) / std
		}
	}
}

// applyEncodeCategorical appends one-hot columns named {col}_{value};
// the original column is retained.
func (d *Dataset) applyEncodeCategorical(rule TransformationRule) {
	idx := d.ColumnIndex(rule.Column)
	valueSet := map[string]bool{}
	for _, row := range d.Rows {
		if !isNull(row[idx]) {
			valueSet[cellString(row[idx])] = true
		}
	}
	values := make([]string, 0, len(valueSet))
	for v := range valueSet {
		values = append(values, v)
	}
	sort.Strings(values)

	for _, v := range values {
		d.Columns = append(d.Columns, fmt.Sprintf("%s_%s", rule.Column, sanitizeColumnToken(v)))
	}
	for i, row := range d.Rows {
		for _, v := range values {
			var flag int64
			if cellString(row[idx]) == v {
				flag = 1
			}
			d.Rows[i] = append(d.Rows[i], flag)
		}
	}
}

// applyExtractDate creates sibling columns {col}_{component} for the
// requested components (default year, month, day, weekday).
func (d *Dataset) applyExtractDate(rule TransformationRule) {
	components := []string{"year", "month", "day", "weekday"}
	if raw, ok := rule.Params["components"].([]any); ok && len(raw) > 0 {
		components = components[:0]
		for _, c := range raw {
			if s, ok := c.(string); ok {
				components = append(components, s)
			}
		}
	}
	idx := d.ColumnIndex(rule.Column)
	for _, comp := range components {
		d.Columns = append(d.Columns, fmt.Sprintf("%s_%s", rule.Column, comp))
	}
	for i, row := range d.Rows {
		t, isTime := row[idx].(time.Time)
		for _, comp := range components {
			var v any
			if isTime {
				switch comp {
				case "year":
					v = int64(t.Year())
				case "month":
					v = int64(t.Month())
				case "day":
					v = int64(t.Day())
				case "weekday":
					v = t.Weekday().String()
				}
			}
			d.Rows[i] = append(d.Rows[i], v)
		}
	}
}

func (d *Dataset) applyRound(rule TransformationRule) {
	digits, ok := paramFloat(rule.Params, "digits")
	if !ok {
		digits = 0
	}
	factor := math.Pow(10, digits)
	idx := d.ColumnIndex(rule.Column)
	for _, row := range d.Rows {
		if f, ok := asFloat(row[idx]); ok {
			row[idx] = math.Round(f*factor) / factor
		}
	}
}

func (d *Dataset) applyUppercase(rule TransformationRule) {
	idx := d.ColumnIndex(rule.Column)
	for _, row := range d.Rows {
		if s, ok := row[idx].(string); ok {
			row[idx] = strings.ToUpper(s)
		}
	}
}

func (d *Dataset) applyReplace(rule TransformationRule) {
	old, _ := rule.Params["old"].(string)
	new_, _ := rule.Params["new"].(string)
	if old == "" {
		return
	}
	idx := d.ColumnIndex(rule.Column)
	for _, row := range d.Rows {
		if s, ok := row[idx].(string); ok {
			row[idx] = strings.ReplaceAll(s, old, new_)
		}
	}
}

func columnMoments(rows [][]any, idx int) (min, max, mean float64, count int) {
	var sum float64
	for _, row := range rows {
		f, ok := asFloat(row[idx])
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
		mean = sum / float64(count)
	}
	return min, max, mean, count
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	return asFloat(normalizeParam(v))
}

// normalizeParam converts YAML/JSON decoded numbers to the cell model.
func normalizeParam(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func sanitizeColumnToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	return b.String()
}

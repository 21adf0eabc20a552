package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/responses"
)

// maxChartPoints bounds the series handed to the frontend renderer.
const maxChartPoints = 50

// chartKeywords maps question phrasing to an explicit chart type.
var chartKeywords = []struct {
	words     []string
	chartType string
}{
	{words: []string{"pie", "pizza", "distribution", "distribuição", "share"}, chartType: "pie"},
	{words: []string{"line", "linha", "trend", "tendência", "over time", "evolution"}, chartType: "line"},
	{words: []string{"scatter", "dispersão", "correlation", "correlação"}, chartType: "scatter"},
	{words: []string{"heat", "calor"}, chartType: "heatmap"},
}

// SelectChartType picks a chart type from the question wording first,
// then from the data shape: temporal data plots as a line, small
// categorical data as a bar.
func SelectChartType(question string, ds *dataset.Dataset) string {
	q := strings.ToLower(question)
	for _, kw := range chartKeywords {
		for _, w := range kw.words {
			if strings.Contains(q, w) {
				return kw.chartType
			}
		}
	}

	if len(ds.TemporalColumns()) > 0 {
		return "line"
	}
	if cats := ds.CategoricalColumns(); len(cats) > 0 {
		if meta := ds.Meta[cats[0]]; meta != nil && meta.Cardinality <= 10 {
			return "bar"
		}
	}
	if ds.RowCount() <= 10 {
		return "bar"
	}
	return "bar"
}

// BuildChart renders a dataset into a declarative apex config. Empty
// xCol/yCol pick sensible defaults: a temporal or categorical label
// axis and the first numeric value column.
func BuildChart(ds *dataset.Dataset, chartType, xCol, yCol, title string) (*responses.ChartSpec, error) {
	if ds.RowCount() == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "cannot chart an empty dataset")
	}

	if xCol == "" {
		xCol = defaultLabelColumn(ds)
	}
	if yCol == "" {
		numeric := ds.NumericColumns()
		if len(numeric) == 0 {
			return nil, apperrors.New(apperrors.KindValidation, "dataset has no numeric column to plot")
		}
		yCol = numeric[0]
	}
	if ds.ColumnIndex(xCol) < 0 {
		return nil, apperrors.Newf(apperrors.KindColumnNotFound, "column %q not found", xCol)
	}
	if ds.ColumnIndex(yCol) < 0 {
		return nil, apperrors.Newf(apperrors.KindColumnNotFound, "column %q not found", yCol)
	}
	if chartType == "" {
		chartType = SelectChartType(title, ds)
	}
	if title == "" {
		title = fmt.Sprintf("%s by %s", yCol, xCol)
	}

	labels, values := chartSeries(ds, xCol, yCol)

	config := map[string]any{
		"chart": map[string]any{"type": chartType},
		"title": map[string]any{"text": title},
	}
	switch chartType {
	case "pie":
		config["series"] = values
		config["labels"] = labels
	case "scatter":
		points := make([]map[string]any, len(values))
		for i, v := range values {
			points[i] = map[string]any{"x": labels[i], "y": v}
		}
		config["series"] = []map[string]any{{"name": yCol, "data": points}}
	default:
		config["series"] = []map[string]any{{"name": yCol, "data": values}}
		config["xaxis"] = map[string]any{"categories": labels}
	}

	return &responses.ChartSpec{
		Format:    responses.FormatApex,
		Config:    config,
		ChartType: chartType,
	}, nil
}

// defaultLabelColumn prefers temporal, then categorical, then any
// non-numeric column, falling back to the first column.
func defaultLabelColumn(ds *dataset.Dataset) string {
	if temporal := ds.TemporalColumns(); len(temporal) > 0 {
		return temporal[0]
	}
	if cats := ds.CategoricalColumns(); len(cats) > 0 {
		return cats[0]
	}
	for _, col := range ds.Columns {
		switch ds.Schema[col] {
		case dataset.TypeInteger, dataset.TypeFloat:
		default:
			return col
		}
	}
	return ds.Columns[0]
}

// chartSeries extracts aligned label and value slices, skipping rows
// where the value is not numeric.
func chartSeries(ds *dataset.Dataset, xCol, yCol string) ([]string, []float64) {
	xIdx := ds.ColumnIndex(xCol)
	yIdx := ds.ColumnIndex(yCol)

	var labels []string
	var values []float64
	for _, row := range ds.Rows {
		if len(labels) >= maxChartPoints {
			break
		}
		v, ok := numericCell(row[yIdx])
		if !ok {
			continue
		}
		labels = append(labels, labelCell(row[xIdx]))
		values = append(values, v)
	}
	return labels, values
}

func numericCell(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func labelCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

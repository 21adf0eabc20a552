package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/responses"
)

func TestSelectChartType(t *testing.T) {
	sales := salesDataset()
	noTime := dataset.New("contagens", "",
		[]string{"grupo", "total"},
		[][]any{{"a", "1"}, {"b", "2"}, {"a", "3"}, {"b", "4"}, {"a", "5"}})

	tests := []struct {
		name     string
		question string
		ds       *dataset.Dataset
		want     string
	}{
		{name: "pie keyword", question: "distribution of sales", ds: sales, want: "pie"},
		{name: "line keyword", question: "trend of valor", ds: noTime, want: "line"},
		{name: "scatter keyword", question: "correlation between valor and quantidade", ds: sales, want: "scatter"},
		{name: "heatmap keyword", question: "heat map of activity", ds: sales, want: "heatmap"},
		{name: "temporal data defaults to line", question: "sales", ds: sales, want: "line"},
		{name: "categorical data defaults to bar", question: "totals", ds: noTime, want: "bar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectChartType(tt.question, tt.ds))
		})
	}
}

func TestBuildChart_Defaults(t *testing.T) {
	spec, err := BuildChart(salesDataset(), "bar", "", "", "")
	require.NoError(t, err)

	assert.Equal(t, responses.FormatApex, spec.Format)
	assert.Equal(t, "bar", spec.ChartType)

	series, ok := spec.Config["series"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, series, 1)
	assert.Equal(t, "valor", series[0]["name"])
	assert.Len(t, series[0]["data"], 5)

	xaxis, ok := spec.Config["xaxis"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, xaxis["categories"], 5)

	title, ok := spec.Config["title"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "valor by data", title["text"])
}

func TestBuildChart_Pie(t *testing.T) {
	spec, err := BuildChart(salesDataset(), "pie", "categoria", "valor", "sales share")
	require.NoError(t, err)

	assert.Equal(t, "pie", spec.ChartType)
	values, ok := spec.Config["series"].([]float64)
	require.True(t, ok)
	assert.Len(t, values, 5)
	labels, ok := spec.Config["labels"].([]string)
	require.True(t, ok)
	assert.Contains(t, labels, "papelaria")
}

func TestBuildChart_Scatter(t *testing.T) {
	spec, err := BuildChart(salesDataset(), "scatter", "quantidade", "valor", "")
	require.NoError(t, err)

	series, ok := spec.Config["series"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, series, 1)
	points, ok := series[0]["data"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, points, 5)
	assert.Contains(t, points[0], "x")
	assert.Contains(t, points[0], "y")
}

func TestBuildChart_Errors(t *testing.T) {
	empty := dataset.New("vazio", "", []string{"a"}, nil)
	_, err := BuildChart(empty, "bar", "", "", "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = BuildChart(salesDataset(), "bar", "nope", "valor", "")
	assert.Equal(t, apperrors.KindColumnNotFound, apperrors.KindOf(err))

	textOnly := dataset.New("notas", "", []string{"texto"}, [][]any{{"abc"}})
	_, err = BuildChart(textOnly, "bar", "", "", "")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

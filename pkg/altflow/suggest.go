package altflow

import (
	"fmt"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

const maxSuggestions = 10

// Suggest synthesizes up to ten questions the loaded data can actually
// answer: summaries, aggregations over numeric columns, time buckets
// over date columns, and joins along detected relationships.
func Suggest(datasets map[string]*dataset.Dataset) []string {
	var out []string
	add := func(s string) bool {
		if len(out) >= maxSuggestions {
			return false
		}
		out = append(out, s)
		return true
	}

	names := sortedDatasetNames(datasets)
	for _, name := range names {
		if !add(fmt.Sprintf("show a summary of %s", name)) {
			return out
		}
	}

	for _, name := range names {
		ds := datasets[name]
		numeric := ds.NumericColumns()
		if len(numeric) == 0 {
			continue
		}
		group := groupableColumn(ds)
		if group != "" {
			if !add(fmt.Sprintf("total %s by %s in %s", numeric[0], group, name)) {
				return out
			}
		}
		for _, temporal := range ds.TemporalColumns() {
			if !add(fmt.Sprintf("monthly %s over %s in %s", numeric[0], temporal, name)) {
				return out
			}
			break
		}
	}

	for _, name := range names {
		ds := datasets[name]
		for _, rel := range ds.Relationships {
			if !add(fmt.Sprintf("combine %s with %s using %s", name, rel.TargetDataset, rel.SourceColumn)) {
				return out
			}
			break
		}
	}

	return out
}

// groupableColumn prefers categorical columns, then non-key strings.
func groupableColumn(ds *dataset.Dataset) string {
	if cats := ds.CategoricalColumns(); len(cats) > 0 {
		return cats[0]
	}
	for _, col := range ds.Columns {
		if ds.Schema[col] == dataset.TypeString && col != ds.PrimaryKey {
			return col
		}
	}
	return ""
}

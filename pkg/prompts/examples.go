package prompts

import (
	"fmt"
	"strings"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// writeExamples synthesizes worked SQL examples from the actual loaded
// schemas so the model sees queries against real table and column
// names: projection, filter, aggregation, a monthly time series, and a
// join when a relationship exists.
func writeExamples(b *strings.Builder, datasets map[string]*dataset.Dataset) {
	names := sortedNames(datasets)
	if len(names) == 0 {
		return
	}
	first := datasets[names[0]]

	writeExample(b, "First rows",
		fmt.Sprintf("SELECT %s FROM %s LIMIT 5", columnList(first, 3), first.Name))

	// Numeric examples come from the first dataset that has a numeric
	// column, which is not necessarily the first alphabetically.
	for _, name := range names {
		ds := datasets[name]
		numeric := firstColumn(ds, ds.NumericColumns())
		if numeric == "" {
			continue
		}

		writeExample(b, "Filter",
			fmt.Sprintf("SELECT * FROM %s WHERE %s > 0", ds.Name, numeric))

		if categorical := groupingColumn(ds); categorical != "" {
			writeExample(b, "Aggregation",
				fmt.Sprintf("SELECT %s, SUM(%s) AS total FROM %s GROUP BY %s ORDER BY total DESC",
					categorical, numeric, ds.Name, categorical))
		}

		if temporal := firstColumn(ds, ds.TemporalColumns()); temporal != "" {
			writeExample(b, "Monthly series",
				fmt.Sprintf("SELECT strftime('%%Y-%%m', %s) AS month, SUM(%s) AS total FROM %s GROUP BY month ORDER BY month",
					temporal, numeric, ds.Name))
		}
		break
	}

	for _, name := range names {
		ds := datasets[name]
		if len(ds.Relationships) == 0 {
			continue
		}
		rel := ds.Relationships[0]
		writeExample(b, "Join",
			fmt.Sprintf("SELECT a.*, b.* FROM %s a JOIN %s b ON a.%s = b.%s",
				ds.Name, rel.TargetDataset, rel.SourceColumn, rel.TargetColumn))
		break
	}
}

func writeExample(b *strings.Builder, label, sql string) {
	b.WriteString(fmt.Sprintf("-- %s\n%s\n\n", label, sql))
}

func columnList(ds *dataset.Dataset, max int) string {
	if len(ds.Columns) <= max {
		return strings.Join(ds.Columns, ", ")
	}
	return strings.Join(ds.Columns[:max], ", ")
}

func firstColumn(ds *dataset.Dataset, cols []string) string {
	if len(cols) == 0 {
		return ""
	}
	return cols[0]
}

// groupingColumn prefers a categorical column, then any non-numeric,
// non-temporal, non-key column.
func groupingColumn(ds *dataset.Dataset) string {
	if cats := ds.CategoricalColumns(); len(cats) > 0 {
		return cats[0]
	}
	for _, col := range ds.Columns {
		switch ds.Schema[col] {
		case dataset.TypeString:
			if col != ds.PrimaryKey {
				return col
			}
		}
	}
	return ""
}

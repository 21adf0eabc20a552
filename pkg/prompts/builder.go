// Package prompts assembles the system and user prompts for code
// generation: schema context per dataset, worked SQL examples, and
// grounding from previously successful queries.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// PastQuery is a previously successful (question, code) pair used to
// ground generation.
type PastQuery struct {
	Question string
	Code     string
}

const systemPrompt = `You are a data analyst who answers questions about tabular data by writing short Go snippets.

Rules:
- Query data with analysis.Sql(query string) []map[string]any. The SQL dialect is SQLite; DATE_FORMAT, CONCAT, SUBSTRING and GROUP_CONCAT are also accepted.
- Raw rows of a loaded table are available via analysis.Dataset(name string) []map[string]any.
- You may import only: math, math/rand, time, encoding/json, sort, strings, strconv, fmt, regexp, errors, unicode.
- Never touch the filesystem, network, or environment.
- The snippet must end by assigning a variable named result:
    result := map[string]any{"type": <tag>, "value": <value>}
  where <tag> is one of "number", "string", "dataframe", "plot".
- For "dataframe", value is the row slice returned by analysis.Sql.
- For "plot", value is map[string]any{"format": "apex", "config": <ApexCharts config map>, "chart_type": <"bar"|"line"|"pie"|"scatter"|"heatmap">}.
- Prefer a single SQL query over manual iteration when SQL can express the answer.
- Answer only with code. No explanations.`

// System returns the fixed system prompt describing the execution
// contract.
func System() string {
	return systemPrompt
}

// User renders the per-request prompt: every loaded dataset's schema,
// worked examples, similar past queries, and the question.
func User(datasets map[string]*dataset.Dataset, question string, past []PastQuery) string {
	var b strings.Builder

	b.WriteString("# Available data\n\n")
	for _, name := range sortedNames(datasets) {
		writeDataset(&b, datasets[name])
	}

	b.WriteString("# Example queries\n\n")
	writeExamples(&b, datasets)

	if len(past) > 0 {
		b.WriteString("# Similar questions answered before\n\n")
		for _, p := range past {
			b.WriteString(fmt.Sprintf("Question: %s\nCode:\n%s\n\n", p.Question, strings.TrimSpace(p.Code)))
		}
	}

	b.WriteString("# Question\n\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

func writeDataset(b *strings.Builder, ds *dataset.Dataset) {
	b.WriteString(fmt.Sprintf("Table: %s\n", ds.Name))
	if ds.Description != "" {
		b.WriteString(fmt.Sprintf("Description: %s\n", ds.Description))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", len(ds.Rows)))
	if ds.PrimaryKey != "" {
		b.WriteString(fmt.Sprintf("Primary key: %s\n", ds.PrimaryKey))
	}

	b.WriteString("Columns:\n")
	for _, col := range ds.Columns {
		writeColumn(b, ds, col)
	}

	for _, rel := range ds.Relationships {
		b.WriteString(fmt.Sprintf("Join: %s.%s -> %s.%s\n",
			ds.Name, rel.SourceColumn, rel.TargetDataset, rel.TargetColumn))
	}
	b.WriteString("\n")
}

func writeColumn(b *strings.Builder, ds *dataset.Dataset, col string) {
	meta := ds.Meta[col]
	parts := []string{fmt.Sprintf("- %s (%s)", col, ds.Schema[col])}

	if meta != nil {
		if meta.Description != "" {
			parts = append(parts, meta.Description)
		}
		switch ds.Schema[col] {
		case dataset.TypeInteger, dataset.TypeFloat:
			if meta.Min != nil && meta.Max != nil {
				parts = append(parts, fmt.Sprintf("range %s to %s",
					trimFloat(*meta.Min), trimFloat(*meta.Max)))
			}
		case dataset.TypeDate, dataset.TypeDatetime:
			if meta.MinTime != nil && meta.MaxTime != nil {
				parts = append(parts, fmt.Sprintf("from %s to %s",
					meta.MinTime.Format("2006-01-02"), meta.MaxTime.Format("2006-01-02")))
			}
		case dataset.TypeCategorical:
			values := make([]string, 0, len(meta.TopValues))
			for _, tv := range meta.TopValues {
				values = append(values, tv.Value)
			}
			if len(values) > 0 {
				parts = append(parts, "values: "+strings.Join(values, ", "))
			}
		}
		if len(meta.Samples) > 0 && ds.Schema[col] != dataset.TypeCategorical {
			parts = append(parts, "e.g. "+strings.Join(meta.Samples, ", "))
		}
	}

	b.WriteString(strings.Join(parts, "; "))
	b.WriteString("\n")
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func sortedNames(datasets map[string]*dataset.Dataset) []string {
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

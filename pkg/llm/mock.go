package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// MockGenerator produces deterministic snippets without any network
// call: a bar chart when the question asks for a visualization, a SQL
// skeleton over the first advertised table otherwise. It backs the
// "mock" provider and the gateway's last-resort fallback.
type MockGenerator struct{}

var _ CodeGenerator = (*MockGenerator)(nil)

func NewMock() *MockGenerator { return &MockGenerator{} }

// tableLinePattern matches the "Table: name" lines the prompt builder
// emits for each loaded dataset.
var tableLinePattern = regexp.MustCompile(`(?m)^Table:\s+(\w+)`)

var vizKeywords = []string{
	"chart", "plot", "graph", "visualize", "visualization",
	"grafico", "gráfico", "visualizar",
}

func (m *MockGenerator) GenerateCode(_ context.Context, _ string, user string) (string, error) {
	table := "data"
	if match := tableLinePattern.FindStringSubmatch(user); match != nil {
		table = match[1]
	}

	lower := strings.ToLower(user)
	for _, kw := range vizKeywords {
		if strings.Contains(lower, kw) {
			return m.chartSnippet(table), nil
		}
	}
	return m.tableSnippet(table), nil
}

func (m *MockGenerator) tableSnippet(table string) string {
	return fmt.Sprintf(`rows := analysis.Sql("SELECT * FROM %s LIMIT 10")
result := map[string]any{"type": "dataframe", "value": rows}
`, table)
}

func (m *MockGenerator) chartSnippet(table string) string {
	return fmt.Sprintf(`rows := analysis.Sql("SELECT * FROM %s LIMIT 10")
labels := []any{}
values := []any{}
for i, r := range rows {
	labels = append(labels, i)
	for _, v := range r {
		values = append(values, v)
		break
	}
}
config := map[string]any{
	"chart":  map[string]any{"type": "bar"},
	"series": []any{map[string]any{"name": "value", "data": values}},
	"xaxis":  map[string]any{"categories": labels},
}
result := map[string]any{"type": "plot", "value": map[string]any{"format": "apex", "config": config, "chart_type": "bar"}}
`, table)
}

func (m *MockGenerator) Model() string { return "mock" }

// StubGenerator is the configurable test double. Set the function field
// to control behavior; calls are counted for verification.
type StubGenerator struct {
	// GenerateCodeFunc is called when GenerateCode is invoked.
	// If nil, returns empty output and nil error.
	GenerateCodeFunc func(ctx context.Context, system, user string) (string, error)

	// ModelName is returned by Model. Defaults to "stub-model".
	ModelName string

	GenerateCodeCalls int
}

var _ CodeGenerator = (*StubGenerator)(nil)

func NewStub() *StubGenerator {
	return &StubGenerator{ModelName: "stub-model"}
}

func (s *StubGenerator) GenerateCode(ctx context.Context, system, user string) (string, error) {
	s.GenerateCodeCalls++
	if s.GenerateCodeFunc != nil {
		return s.GenerateCodeFunc(ctx, system, user)
	}
	return "", nil
}

func (s *StubGenerator) Model() string {
	if s.ModelName == "" {
		return "stub-model"
	}
	return s.ModelName
}

package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

func promptDatasets() map[string]*dataset.Dataset {
	vendas := dataset.New("vendas", "sales records",
		[]string{"data", "cliente_id", "valor"},
		[][]any{
			{"2024-01-05", "10", "12.5"},
			{"2024-02-01", "11", "85.0"},
		})
	clientes := dataset.New("clientes", "customers",
		[]string{"id", "nome"},
		[][]any{
			{"10", "ana"},
			{"11", "bruno"},
		})
	all := map[string]*dataset.Dataset{"vendas": vendas, "clientes": clientes}
	dataset.DetectRelationships(all)
	return all
}

func TestSystem_StatesContract(t *testing.T) {
	sys := System()
	assert.Contains(t, sys, "analysis.Sql")
	assert.Contains(t, sys, "result :=")
	assert.Contains(t, sys, `"plot"`)
	assert.Contains(t, sys, "apex")
}

func TestUser_SchemaContext(t *testing.T) {
	prompt := User(promptDatasets(), "total sales per customer", nil)

	assert.Contains(t, prompt, "Table: vendas")
	assert.Contains(t, prompt, "Table: clientes")
	assert.Contains(t, prompt, "- valor (float)")
	assert.Contains(t, prompt, "- data (date)")
	assert.Contains(t, prompt, "Primary key: id")
	assert.Contains(t, prompt, "Join: vendas.cliente_id -> clientes.id")
	assert.Contains(t, prompt, "# Question\n\ntotal sales per customer")
}

func TestUser_WorkedExamples(t *testing.T) {
	prompt := User(promptDatasets(), "anything", nil)

	assert.Contains(t, prompt, "LIMIT 5")
	assert.Contains(t, prompt, "GROUP BY")
	assert.Contains(t, prompt, "strftime('%Y-%m'")
	assert.Contains(t, prompt, "JOIN clientes b ON a.cliente_id = b.id")
}

func TestUser_PastQueriesIncluded(t *testing.T) {
	past := []PastQuery{{
		Question: "total per month",
		Code:     `rows := analysis.Sql("SELECT 1")` + "\nresult := rows",
	}}
	prompt := User(promptDatasets(), "total per week", past)

	require.True(t, strings.Contains(prompt, "Similar questions answered before"))
	assert.Contains(t, prompt, "total per month")
	assert.Contains(t, prompt, `analysis.Sql("SELECT 1")`)
}

func TestUser_TablesOrderedDeterministically(t *testing.T) {
	a := User(promptDatasets(), "q", nil)
	b := User(promptDatasets(), "q", nil)
	assert.Equal(t, a, b)
	// clientes sorts before vendas.
	assert.Less(t, strings.Index(a, "Table: clientes"), strings.Index(a, "Table: vendas"))
}

// Package altflow handles everything around the happy path: pre-query
// entity checks, error classification, question rephrasing, and
// suggested alternative questions.
package altflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/responses"
)

// entityGroup ties question keywords to the dataset or column names
// that can answer them. mention triggers the check; coverage is what
// the loaded data must contain, in English or Portuguese.
type entityGroup struct {
	label    string
	mention  []string
	coverage []string
}

// Groups are checked in order; the stock group comes first because a
// stock question is not answered by a product column.
var entityGroups = []entityGroup{
	{
		label:    "products",
		mention:  []string{"stock", "estoque"},
		coverage: []string{"stock", "estoque", "inventory", "inventario", "inventário"},
	},
	{
		label:    "products",
		mention:  []string{"product", "products", "produto", "produtos"},
		coverage: []string{"product", "products", "produto", "produtos"},
	},
	{
		label:    "employees",
		mention:  []string{"employee", "employees", "funcionario", "funcionarios", "funcionário", "funcionários"},
		coverage: []string{"employee", "employees", "funcionario", "funcionarios", "staff"},
	},
	{
		label:    "departments",
		mention:  []string{"department", "departments", "departamento", "departamentos"},
		coverage: []string{"department", "departments", "departamento", "departamentos"},
	},
	{
		label:    "categories",
		mention:  []string{"category", "categories", "categoria", "categorias"},
		coverage: []string{"category", "categories", "categoria", "categorias"},
	},
	{
		label:    "customers",
		mention:  []string{"customer", "customers", "client", "clients", "cliente", "clientes"},
		coverage: []string{"customer", "customers", "client", "cliente", "clientes"},
	},
}

// PreCheck scans the question for entity groups the loaded data cannot
// answer. A miss returns a Text response naming the available datasets
// and a few alternative questions; nil means proceed. Coverage counts
// both dataset names and column names.
func PreCheck(question string, datasets map[string]*dataset.Dataset) *responses.Response {
	words := questionWords(question)

	for _, group := range entityGroups {
		if !mentionsAny(words, group.mention) {
			continue
		}
		if covered(datasets, group.coverage) {
			continue
		}

		names := sortedDatasetNames(datasets)
		suggestions := Suggest(datasets)
		if len(suggestions) > 3 {
			suggestions = suggestions[:3]
		}

		var b strings.Builder
		b.WriteString(fmt.Sprintf("There is no data about %s in the loaded datasets. ", group.label))
		b.WriteString(fmt.Sprintf("Available datasets: %s.", strings.Join(names, ", ")))
		if len(suggestions) > 0 {
			b.WriteString(" You could ask instead:")
			for _, s := range suggestions {
				b.WriteString("\n- " + s)
			}
		}
		return responses.NewText(b.String())
	}
	return nil
}

func questionWords(question string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(question)) {
		out[strings.Trim(w, ".,;:!?\"'()")] = true
	}
	return out
}

func mentionsAny(words map[string]bool, keywords []string) bool {
	for _, kw := range keywords {
		if words[kw] {
			return true
		}
	}
	return false
}

// covered reports whether any dataset name or column name matches one
// of the coverage keywords after normalization.
func covered(datasets map[string]*dataset.Dataset, coverage []string) bool {
	keys := make(map[string]bool, len(coverage))
	for _, kw := range coverage {
		keys[normalizeEntity(kw)] = true
	}
	for name, ds := range datasets {
		if keys[normalizeEntity(name)] {
			return true
		}
		for _, col := range ds.Columns {
			if keys[normalizeEntity(col)] {
				return true
			}
		}
	}
	return false
}

// normalizeEntity lowercases, strips underscores, and singularizes so
// "categorias"/"categoria" and "order_items"/"orderitem" compare equal.
func normalizeEntity(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "_", "")
	return inflection.Singular(s)
}

func sortedDatasetNames(datasets map[string]*dataset.Dataset) []string {
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

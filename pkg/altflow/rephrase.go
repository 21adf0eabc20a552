package altflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/llm"
)

const fallbackQuestion = "show a summary of the available data"

// Rephraser rewrites a failing question in terms the loaded data can
// answer, degrading to rule-based simplification when the provider is
// unavailable or produces code instead of a question.
type Rephraser struct {
	generator llm.CodeGenerator
	logger    *zap.Logger
}

func NewRephraser(generator llm.CodeGenerator, logger *zap.Logger) *Rephraser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rephraser{generator: generator, logger: logger.Named("altflow.rephrase")}
}

// Rephrase returns a new question referencing only available datasets
// and columns.
func (r *Rephraser) Rephrase(ctx context.Context, question, errMsg string, datasets map[string]*dataset.Dataset) string {
	if r.generator == nil {
		return Simplify(question)
	}

	system := "You rewrite questions about tabular data so they only reference the tables and columns that actually exist. Answer with the rewritten question only, no explanations, no code."
	user := rephrasePrompt(question, errMsg, datasets)

	out, err := r.generator.GenerateCode(ctx, system, user)
	if err != nil {
		r.logger.Warn("rephrase provider failed, simplifying instead", zap.Error(err))
		return Simplify(question)
	}

	rephrased := strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if degenerate(rephrased, question) {
		r.logger.Debug("degenerate rephrasing discarded", zap.String("output", rephrased))
		return Simplify(question)
	}
	return rephrased
}

func rephrasePrompt(question, errMsg string, datasets map[string]*dataset.Dataset) string {
	var b strings.Builder
	b.WriteString("The question below failed against the loaded data.\n\n")
	for _, name := range sortedDatasetNames(datasets) {
		ds := datasets[name]
		b.WriteString(fmt.Sprintf("Table %s with columns: %s\n", name, strings.Join(ds.Columns, ", ")))
	}
	b.WriteString(fmt.Sprintf("\nError: %s\nQuestion: %s\n\nRewrite the question using only the listed tables and columns.", errMsg, question))
	return b.String()
}

// degenerate rejects rephrasings that are code, empty, unchanged, or a
// whole paragraph.
func degenerate(rephrased, original string) bool {
	if rephrased == "" {
		return true
	}
	lower := strings.ToLower(rephrased)
	if strings.Contains(lower, "import ") || strings.Contains(lower, "result =") ||
		strings.Contains(lower, "result :=") || strings.Contains(rephrased, "```") {
		return true
	}
	if strings.EqualFold(rephrased, original) {
		return true
	}
	return strings.Count(rephrased, "\n") > 2
}

// domainSubstitutions swap specific business words for neutral ones the
// schema is more likely to contain.
var domainSubstitutions = map[string]string{
	"revenue":  "total value",
	"receita":  "valor",
	"profit":   "value",
	"lucro":    "valor",
	"turnover": "total",
}

var whTailPattern = regexp.MustCompile(`(?i)\b(?:what|which|how many|how much|quais?|quanto[as]?)\b\s+(.+)$`)

// Simplify is the rule-based fallback: substitute domain words, then
// keep the noun phrase after a wh-word, finally degrade to a fixed
// summary request.
func Simplify(question string) string {
	q := strings.TrimSpace(strings.TrimRight(question, "?!. "))
	if q == "" {
		return fallbackQuestion
	}

	lower := strings.ToLower(q)
	substituted := false
	for from, to := range domainSubstitutions {
		if strings.Contains(lower, from) {
			lower = strings.ReplaceAll(lower, from, to)
			substituted = true
		}
	}
	if substituted {
		return lower
	}

	if match := whTailPattern.FindStringSubmatch(q); match != nil {
		tail := strings.TrimSpace(match[1])
		if tail != "" && tail != q {
			return "show " + strings.ToLower(tail)
		}
	}

	return fallbackQuestion
}

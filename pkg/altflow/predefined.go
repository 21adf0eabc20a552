package altflow

import (
	"fmt"
	"strings"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/responses"
)

// OfferPredefined is the end of the retry budget: a Text response that
// explains the failure in one line and lists questions known to work.
func OfferPredefined(question string, kind apperrors.Kind, datasets map[string]*dataset.Dataset) *responses.Response {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("The question %q could not be answered (%s). ", question, describeKind(kind)))

	suggestions := Suggest(datasets)
	if len(suggestions) == 0 {
		b.WriteString("No datasets are loaded.")
		return responses.NewText(b.String())
	}

	b.WriteString("Here are some questions this data can answer:")
	for _, s := range suggestions {
		b.WriteString("\n- " + s)
	}
	return responses.NewText(b.String())
}

// MissingTable is the direct answer for a query that referenced an
// unknown table: no retry, just the available names.
func MissingTable(name string, available []string) *responses.Response {
	if len(available) == 0 {
		return responses.NewText(fmt.Sprintf("The table %q does not exist and no datasets are loaded.", name))
	}
	return responses.NewText(fmt.Sprintf("The table %q does not exist. Available tables: %s.",
		name, strings.Join(available, ", ")))
}

func describeKind(kind apperrors.Kind) string {
	switch kind {
	case apperrors.KindColumnNotFound:
		return "a referenced column does not exist"
	case apperrors.KindSQLSyntax:
		return "the generated query was invalid"
	case apperrors.KindTypeMismatch:
		return "the result did not match the expected shape"
	case apperrors.KindTimeout:
		return "the analysis took too long"
	case apperrors.KindExhaustedRetries:
		return "all attempts failed"
	default:
		return "the analysis failed"
	}
}

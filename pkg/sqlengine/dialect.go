package sqlengine

import (
	"regexp"
	"strings"
)

// The generated SQL arrives in a mix of MySQL and PostgreSQL habits.
// RewriteDialect converts the common divergent constructs to forms the
// embedded engine executes natively; anything it misses is covered by
// the registered macros.

var (
	// DATE_FORMAT(col, '%Y-%m') -> strftime('%Y-%m', col)
	dateFormatPattern = regexp.MustCompile(`(?i)\bDATE_FORMAT\s*\(\s*([^,()]+?)\s*,\s*('[^']*')\s*\)`)

	// TO_DATE(x) -> DATE(x)
	toDatePattern = regexp.MustCompile(`(?i)\bTO_DATE\s*\(`)

	// CONCAT(a, b) -> (a || b); only the two-argument form is rewritten,
	// wider forms fall through to the CONCAT macro.
	concatPattern = regexp.MustCompile(`(?i)\bCONCAT\s*\(\s*([^,()]+?)\s*,\s*([^,()]+?)\s*\)`)

	// SUBSTRING( -> SUBSTR(
	substringPattern = regexp.MustCompile(`(?i)\bSUBSTRING\s*\(`)

	// GROUP_CONCAT( -> STRING_AGG(
	groupConcatPattern = regexp.MustCompile(`(?i)\bGROUP_CONCAT\s*\(`)

	// FROM/JOIN table references; subqueries start with '(' and are skipped.
	tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+("[^"]+"|[A-Za-z_][\w.]*)`)
)

// RewriteDialect adapts a query to the embedded engine's dialect.
func RewriteDialect(sqlText string) string {
	out := dateFormatPattern.ReplaceAllString(sqlText, "strftime($2, $1)")
	out = toDatePattern.ReplaceAllString(out, "DATE(")
	out = concatPattern.ReplaceAllString(out, "($1 || $2)")
	out = substringPattern.ReplaceAllString(out, "SUBSTR(")
	out = groupConcatPattern.ReplaceAllString(out, "STRING_AGG(")
	return out
}

// ExtractTableRefs returns the distinct table names referenced by
// FROM/JOIN clauses, unquoted, in order of appearance.
func ExtractTableRefs(sqlText string) []string {
	matches := tableRefPattern.FindAllStringSubmatch(sqlText, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		name = strings.Trim(name, `"`)
		// "FROM (SELECT ..." captures nothing; defensive trim of stray tokens.
		if i := strings.IndexAny(name, " \t\n"); i >= 0 {
			name = name[:i]
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

package sandbox

import (
	"fmt"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// allowedImports is the stdlib surface generated snippets may import.
// Everything else is rejected before an interpreter is created.
var allowedImports = map[string]bool{
	"math":          true,
	"math/rand":     true,
	"time":          true,
	"encoding/json": true,
	"sort":          true,
	"strings":       true,
	"strconv":       true,
	"fmt":           true,
	"regexp":        true,
	"errors":        true,
	"unicode":       true,
}

// bannedPatterns match identifiers that reach outside the sandbox no
// matter how they were imported.
var bannedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bos\s*\.`),
	regexp.MustCompile(`\bexec\s*\.`),
	regexp.MustCompile(`\bsyscall\b`),
	regexp.MustCompile(`\bunsafe\b`),
	regexp.MustCompile(`\bnet\s*\.`),
	regexp.MustCompile(`\bopen\s*\(`),
	regexp.MustCompile(`\bGlobals\b`),
	regexp.MustCompile(`\beval\s*\(`),
}

// ValidateSnippet rejects code before execution: banned identifiers,
// disallowed imports, then a full syntax parse of the wrapped snippet.
func ValidateSnippet(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("empty code")
	}

	for _, p := range bannedPatterns {
		if loc := p.FindString(code); loc != "" {
			return fmt.Errorf("forbidden construct %q", strings.TrimSpace(loc))
		}
	}

	for _, imp := range scanImports(code) {
		if imp == "analysis" {
			continue
		}
		if !allowedImports[imp] {
			return fmt.Errorf("import %q not allowed", imp)
		}
	}

	if err := parseSnippet(code); err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}
	return nil
}

// scanImports extracts import paths from single-line and block forms.
func scanImports(code string) []string {
	var out []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			if path := importPath(trimmed); path != "" {
				out = append(out, path)
			}
		case strings.HasPrefix(trimmed, "import "):
			if path := importPath(strings.TrimPrefix(trimmed, "import ")); path != "" {
				out = append(out, path)
			}
		}
	}
	return out
}

// importPath pulls the quoted path out of an import line, dropping any
// alias prefix.
func importPath(line string) string {
	start := strings.Index(line, `"`)
	if start < 0 {
		return ""
	}
	rest := line[start+1:]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// parseSnippet wraps the REPL-form snippet in a function body so the
// parser accepts bare statements, with imports hoisted to file level.
func parseSnippet(code string) error {
	var imports, body []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
			imports = append(imports, line)
		case inBlock:
			imports = append(imports, line)
			if strings.HasPrefix(trimmed, ")") {
				inBlock = false
			}
		case strings.HasPrefix(trimmed, "import "):
			imports = append(imports, line)
		default:
			body = append(body, line)
		}
	}

	var b strings.Builder
	b.WriteString("package main\n")
	b.WriteString(strings.Join(imports, "\n"))
	b.WriteString("\nvar analysis struct{}\nfunc snippetBody() {\n")
	b.WriteString(strings.Join(body, "\n"))
	b.WriteString("\n_ = analysis\n}\n")

	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "snippet.go", b.String(), 0)
	return err
}

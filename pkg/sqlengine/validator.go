package sqlengine

import (
	"errors"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates the query is not a plain SELECT/WITH statement.
	ErrNotReadOnly = errors.New("only SELECT statements are permitted")

	// ErrEmptyQuery indicates an empty query string.
	ErrEmptyQuery = errors.New("empty query")
)

// ValidationResult contains the normalized SQL and any validation error.
type ValidationResult struct {
	SQL string
	Err error
}

// ValidateAndNormalize checks a query before execution.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Check for multiple statements (any remaining semicolons outside string literals)
// 3. Check the statement is read-only (SELECT or WITH)
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{Err: ErrEmptyQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)

	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Err: ErrMultipleStatements}
	}

	upper := strings.ToUpper(normalized)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ValidationResult{Err: ErrNotReadOnly}
	}

	return ValidationResult{SQL: normalized}
}

// InjectionCheckResult describes a detected SQL injection pattern.
type InjectionCheckResult struct {
	Fingerprint string
	Value       string
}

// CheckForInjection runs libinjection over a free-text value, typically a
// user question that will be embedded into a prompt. Returns nil when the
// value is clean.
func CheckForInjection(value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{Fingerprint: string(fingerprint), Value: value}
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handles both backslash escape (\') and SQL doubled quote ('');
			// a doubled quote exits and immediately re-enters on the next one.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding whitespace.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}

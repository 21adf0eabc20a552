package logging

import "regexp"

const (
	// MaxQueryLogLength caps question/SQL text in log lines.
	MaxQueryLogLength = 200
	// RedactedText replaces credential-shaped substrings.
	RedactedText = "[REDACTED]"
)

var (
	// password=... / pwd=... / pass=... up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// api_key=... style values of plausible key length
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token)=[A-Za-z0-9-_]{16,}`)

	// user:pass@host connection strings
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeQuery truncates question or SQL text and strips anything that
// looks like a credential before it reaches a log line.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	s := query
	if len(s) > MaxQueryLogLength {
		s = s[:MaxQueryLogLength] + "..."
	}
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	return s
}

// SanitizeConnString redacts credentials embedded in a connection string.
func SanitizeConnString(conn string) string {
	if conn == "" {
		return ""
	}
	s := passwordPattern.ReplaceAllString(conn, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
}

// Truncate shortens s to maxLen with an ellipsis.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

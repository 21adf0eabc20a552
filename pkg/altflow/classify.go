package altflow

import (
	"strings"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// Classify maps a failing execution onto the recovery taxonomy. Typed
// errors carry their kind already; untyped ones are classified from
// the message.
func Classify(err error) apperrors.Kind {
	if err == nil {
		return apperrors.KindGeneric
	}
	if kind := apperrors.KindOf(err); kind != apperrors.KindGeneric {
		return kind
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "table not found"):
		return apperrors.KindTableNotFound
	case strings.Contains(msg, "no such column"), strings.Contains(msg, "column not found"):
		return apperrors.KindColumnNotFound
	case strings.Contains(msg, "syntax"):
		return apperrors.KindSQLSyntax
	case strings.Contains(msg, "mismatch"):
		return apperrors.KindTypeMismatch
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return apperrors.KindTimeout
	}
	return apperrors.KindGeneric
}

// Retryable reports whether a rephrase-and-retry can recover the kind.
// Validation failures and timeouts never retry; a missing table gets a
// direct textual answer instead.
func Retryable(kind apperrors.Kind) bool {
	switch kind {
	case apperrors.KindColumnNotFound, apperrors.KindSQLSyntax, apperrors.KindTypeMismatch, apperrors.KindGeneric:
		return true
	}
	return false
}

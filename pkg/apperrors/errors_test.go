package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "classified", err: New(KindTimeout, "too slow"), want: KindTimeout},
		{name: "wrapped classified", err: fmt.Errorf("outer: %w", New(KindSQLSyntax, "bad")), want: KindSQLSyntax},
		{name: "table not found type", err: &TableNotFoundError{Name: "x"}, want: KindTableNotFound},
		{name: "plain error", err: errors.New("whatever"), want: KindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(KindLLMUnavailable, "provider call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "llm_unavailable")
	assert.Contains(t, err.Error(), "socket closed")
}

func TestTableNotFoundError_Message(t *testing.T) {
	err := &TableNotFoundError{Name: "produtos", Available: []string{"vendas", "clientes"}}
	assert.Contains(t, err.Error(), `"produtos"`)
	assert.Contains(t, err.Error(), "vendas, clientes")
}

func TestSentinels(t *testing.T) {
	wrapped := fmt.Errorf("get session: %w", ErrSessionNotFound)
	assert.ErrorIs(t, wrapped, ErrSessionNotFound)
	assert.NotErrorIs(t, wrapped, ErrSessionNotLoaded)
}

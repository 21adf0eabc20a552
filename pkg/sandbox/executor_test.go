package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

func TestExecute_ScalarResult(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)

	res, err := e.Execute(context.Background(), `
result := map[string]any{"type": "number", "value": 41 + 1}
`, Env{})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, "number", res.Value["type"])
	assert.Equal(t, int64(42), res.Value["value"])
}

// Allowed imports must resolve inside the interpreter, including the
// symbol packages they pull in transitively (math needs math/bits).
func TestExecute_AllowedImportRuns(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)

	res, err := e.Execute(context.Background(), `
import "math"
result := map[string]any{"type": "number", "value": math.Sqrt(144)}
`, Env{})
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 12.0, res.Value["value"])
}

func TestExecute_SQLFacade(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)
	env := Env{
		SQL: func(query string) ([]map[string]any, error) {
			assert.Contains(t, query, "vendas")
			return []map[string]any{{"total": 97.5}}, nil
		},
	}

	res, err := e.Execute(context.Background(), `
rows := analysis.Sql("SELECT SUM(valor) AS total FROM vendas")
result := map[string]any{"type": "number", "value": rows[0]["total"]}
`, env)
	require.NoError(t, err)
	assert.Equal(t, 97.5, res.Value["value"])
}

func TestExecute_SQLErrorSurfacesTyped(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)
	env := Env{
		SQL: func(string) ([]map[string]any, error) {
			return nil, &apperrors.TableNotFoundError{Name: "produtos", Available: []string{"vendas"}}
		},
	}

	res, err := e.Execute(context.Background(), `
rows := analysis.Sql("SELECT * FROM produtos")
result := map[string]any{"type": "dataframe", "value": rows}
`, env)
	require.Error(t, err)
	assert.Equal(t, StateFaulted, res.State)
	assert.Equal(t, apperrors.KindTableNotFound, apperrors.KindOf(err))
}

func TestExecute_DatasetFacade(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)
	env := Env{
		Datasets: map[string][]map[string]any{
			"vendas": {{"valor": 10.0}, {"valor": 20.0}},
		},
	}

	res, err := e.Execute(context.Background(), `
rows := analysis.Dataset("vendas")
sum := 0.0
for _, r := range rows {
	sum += r["valor"].(float64)
}
result := map[string]any{"type": "number", "value": sum}
`, env)
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Value["value"])
}

func TestExecute_ResultAliases(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)

	for _, alias := range []string{"resultado", "df", "data"} {
		t.Run(alias, func(t *testing.T) {
			res, err := e.Execute(context.Background(),
				alias+` := map[string]any{"type": "string", "value": "ok"}`, Env{})
			require.NoError(t, err)
			assert.Equal(t, "ok", res.Value["value"])
		})
	}
}

func TestExecute_BareValueShaped(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)

	res, err := e.Execute(context.Background(), `result := 7`, Env{})
	require.NoError(t, err)
	assert.Equal(t, "number", res.Value["type"])
	assert.Equal(t, int64(7), res.Value["value"])
}

func TestExecute_RejectedCodeNeverRuns(t *testing.T) {
	e := NewExecutor(5*time.Second, 0, nil)
	called := false
	env := Env{SQL: func(string) ([]map[string]any, error) {
		called = true
		return nil, nil
	}}

	res, err := e.Execute(context.Background(), `
import "os"
result := os.Getenv("HOME")
`, env)
	require.Error(t, err)
	assert.Equal(t, StateRejected, res.State)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.False(t, called)
}

func TestExecute_Timeout(t *testing.T) {
	e := NewExecutor(300*time.Millisecond, 0, nil)

	res, err := e.Execute(context.Background(), `
n := 0
for {
	n++
}
result := map[string]any{"type": "number", "value": n}
`, Env{})
	require.Error(t, err)
	assert.Equal(t, StateTimedOut, res.State)
	assert.Equal(t, apperrors.KindTimeout, apperrors.KindOf(err))
}

func TestExecute_StdoutCaptured(t *testing.T) {
	e := NewExecutor(5*time.Second, 32, nil)

	res, err := e.Execute(context.Background(), `
import "fmt"
fmt.Println("intermediate finding")
fmt.Println("this second line pushes the output past the cap")
result := map[string]any{"type": "string", "value": "done"}
`, Env{})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "intermediate")
	assert.Contains(t, res.Stdout, "[output truncated]")
}

func TestValidateSnippet(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr string
	}{
		{name: "clean", code: `result := 1`},
		{name: "allowed import", code: "import \"strings\"\nresult := strings.ToUpper(\"a\")"},
		{name: "empty", code: "   ", wantErr: "empty"},
		{name: "os dot", code: `result := os.Getenv("X")`, wantErr: "forbidden"},
		{name: "exec", code: `cmd := exec.Command("ls")`, wantErr: "forbidden"},
		{name: "unsafe", code: `p := unsafe.Pointer(nil)`, wantErr: "forbidden"},
		{name: "disallowed import", code: "import \"net/http\"\nresult := 1", wantErr: "not allowed"},
		{name: "syntax error", code: `result := {{`, wantErr: "syntax"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnippet(tt.code)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr),
				"error %q should contain %q", err.Error(), tt.wantErr)
		})
	}
}

func TestIsolatedExecutor_Supports(t *testing.T) {
	e := NewIsolatedExecutor(time.Second, nil)
	assert.False(t, e.Supports(`rows := analysis.Sql("SELECT 1")`))
	assert.True(t, e.Supports(`rows := analysis.Dataset("vendas")`))
}

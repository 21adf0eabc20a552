// Package sandbox executes generated Go snippets inside a restricted
// yaegi interpreter: stdlib allow-list, injected analysis facade, wall
// clock deadline, capped stdout.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// State tracks an execution through its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateCapturing  State = "capturing"
	StateDone       State = "done"
	StateRejected   State = "rejected"
	StateTimedOut   State = "timed_out"
	StateFaulted    State = "faulted"
)

// Env is the capability set handed to a snippet.
type Env struct {
	// SQL executes a query against the session's engine. Nil means the
	// snippet runs without SQL access.
	SQL func(query string) ([]map[string]any, error)

	// Datasets maps loaded dataset names to their rows.
	Datasets map[string][]map[string]any

	// Memory carries serializable values between executions.
	Memory map[string]any
}

// Result is one finished execution.
type Result struct {
	Value  map[string]any
	Stdout string
	State  State
}

// resultNames are the variables probed for the snippet's output, in
// priority order.
var resultNames = []string{"result", "resultado", "df", "data"}

// sqlFault carries a query error out of interpreted code via panic;
// the executor maps it back onto the error taxonomy.
type sqlFault struct{ err error }

// Executor runs snippets cooperatively in-process.
type Executor struct {
	timeout   time.Duration
	stdoutCap int
	logger    *zap.Logger
}

// NewExecutor builds a cooperative executor. Zero timeout means 30s,
// zero stdoutCap means 16KiB.
func NewExecutor(timeout time.Duration, stdoutCap int, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if stdoutCap <= 0 {
		stdoutCap = 16 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{timeout: timeout, stdoutCap: stdoutCap, logger: logger.Named("sandbox")}
}

// Execute validates and runs a snippet. Rejected code never reaches an
// interpreter; the returned Result's State records how the run ended.
func (e *Executor) Execute(ctx context.Context, code string, env Env) (*Result, error) {
	res := &Result{State: StateValidating}

	if err := ValidateSnippet(code); err != nil {
		res.State = StateRejected
		return res, apperrors.Wrap(apperrors.KindValidation, "code rejected", err)
	}

	stdout := newCappedWriter(e.stdoutCap)
	i := interp.New(interp.Options{Stdout: stdout, Stderr: stdout})
	// The full symbol table must be loaded: allowed packages pull in
	// symbol packages of their own (math needs math/bits) and a partial
	// table fails the Use call. Import restriction already happened in
	// ValidateSnippet.
	if err := i.Use(stdlib.Symbols); err != nil {
		res.State = StateFaulted
		return res, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(facadeExports(env)); err != nil {
		res.State = StateFaulted
		return res, fmt.Errorf("load analysis facade: %w", err)
	}
	if _, err := i.Eval(`import "analysis"`); err != nil {
		res.State = StateFaulted
		return res, fmt.Errorf("import analysis facade: %w", err)
	}

	res.State = StateExecuting
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if _, err := i.EvalWithContext(runCtx, code); err != nil {
		res.Stdout = stdout.String()
		return e.classifyEvalError(res, runCtx, err)
	}

	res.State = StateCapturing
	res.Stdout = stdout.String()
	for _, name := range resultNames {
		v, err := i.Eval(name)
		if err != nil || !v.IsValid() {
			continue
		}
		res.Value = shapeResult(v.Interface())
		res.State = StateDone
		return res, nil
	}

	res.State = StateFaulted
	return res, apperrors.New(apperrors.KindGeneric, "snippet produced no result variable")
}

func (e *Executor) classifyEvalError(res *Result, ctx context.Context, err error) (*Result, error) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.State = StateTimedOut
		return res, apperrors.Wrap(apperrors.KindTimeout, "execution timed out", err)
	}

	var p interp.Panic
	if errors.As(err, &p) {
		if fault, ok := p.Value.(sqlFault); ok {
			res.State = StateFaulted
			return res, fault.err
		}
	}

	res.State = StateFaulted
	return res, apperrors.Wrap(apperrors.KindGeneric, "execution failed", err)
}

// facadeExports builds the injected analysis package: Sql, Dataset,
// Memory. Sql panics with a typed fault so the query error survives the
// interpreter boundary intact.
func facadeExports(env Env) interp.Exports {
	sqlFn := func(query string) []map[string]any {
		if env.SQL == nil {
			panic(sqlFault{err: apperrors.New(apperrors.KindValidation, "SQL access not available in this execution")})
		}
		rows, err := env.SQL(query)
		if err != nil {
			panic(sqlFault{err: err})
		}
		return rows
	}
	datasetFn := func(name string) []map[string]any {
		if rows, ok := env.Datasets[name]; ok {
			return rows
		}
		available := make([]string, 0, len(env.Datasets))
		for n := range env.Datasets {
			available = append(available, n)
		}
		panic(sqlFault{err: &apperrors.TableNotFoundError{Name: name, Available: available}})
	}
	memory := env.Memory
	if memory == nil {
		memory = map[string]any{}
	}

	return interp.Exports{
		"analysis/analysis": {
			"Sql":     reflect.ValueOf(sqlFn),
			"Dataset": reflect.ValueOf(datasetFn),
			"Memory":  reflect.ValueOf(memory),
		},
	}
}

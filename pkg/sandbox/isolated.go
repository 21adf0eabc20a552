package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// childPayload is the request written to the sandbox child's stdin.
type childPayload struct {
	Code     string                      `json:"code"`
	Datasets map[string][]map[string]any `json:"datasets,omitempty"`
	Memory   map[string]any              `json:"memory,omitempty"`
	Timeout  int                         `json:"timeout_seconds"`
}

// childReply is the child's stdout answer.
type childReply struct {
	Value  map[string]any `json:"value,omitempty"`
	Stdout string         `json:"stdout,omitempty"`
	State  State          `json:"state"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
}

// IsolatedExecutor re-execs the engine binary with the sandbox flag and
// runs the snippet in the child process, killed on deadline. It cannot
// carry a live SQL capability, so it is only selected for snippets that
// work from serialized dataset rows.
type IsolatedExecutor struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewIsolatedExecutor(timeout time.Duration, logger *zap.Logger) *IsolatedExecutor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IsolatedExecutor{timeout: timeout, logger: logger.Named("sandbox.isolated")}
}

// Supports reports whether the snippet can run isolated: it must not
// need the SQL capability.
func (e *IsolatedExecutor) Supports(code string) bool {
	return !strings.Contains(code, "analysis.Sql(")
}

// Execute runs the snippet in a child process.
func (e *IsolatedExecutor) Execute(ctx context.Context, code string, env Env) (*Result, error) {
	if err := ValidateSnippet(code); err != nil {
		return &Result{State: StateRejected}, apperrors.Wrap(apperrors.KindValidation, "code rejected", err)
	}

	self, err := os.Executable()
	if err != nil {
		return &Result{State: StateFaulted}, fmt.Errorf("resolve own binary: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout+2*time.Second)
	defer cancel()

	payload, err := json.Marshal(childPayload{
		Code:     code,
		Datasets: env.Datasets,
		Memory:   env.Memory,
		Timeout:  int(e.timeout / time.Second),
	})
	if err != nil {
		return &Result{State: StateFaulted}, fmt.Errorf("encode sandbox payload: %w", err)
	}

	cmd := exec.CommandContext(runCtx, self, "-sandbox")
	cmd.Stdin = strings.NewReader(string(payload))
	out, err := cmd.Output()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &Result{State: StateTimedOut},
			apperrors.New(apperrors.KindTimeout, "isolated execution timed out")
	}
	if err != nil {
		return &Result{State: StateFaulted}, fmt.Errorf("sandbox child failed: %w", err)
	}

	var reply childReply
	if err := json.Unmarshal(out, &reply); err != nil {
		return &Result{State: StateFaulted}, fmt.Errorf("decode sandbox reply: %w", err)
	}
	res := &Result{Value: reply.Value, Stdout: reply.Stdout, State: reply.State}
	if reply.Error != "" {
		kind := apperrors.Kind(reply.Kind)
		if kind == "" {
			kind = apperrors.KindGeneric
		}
		return res, apperrors.New(kind, reply.Error)
	}
	return res, nil
}

// RunChild is the child-process side: one payload on stdin, one reply
// on stdout. Called from main when the sandbox flag is set.
func RunChild(r io.Reader, w io.Writer) error {
	var payload childPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return writeReply(w, childReply{State: StateFaulted, Error: fmt.Sprintf("decode payload: %v", err)})
	}

	timeout := time.Duration(payload.Timeout) * time.Second
	runner := NewExecutor(timeout, 0, nil)
	res, err := runner.Execute(context.Background(), payload.Code, Env{
		Datasets: payload.Datasets,
		Memory:   payload.Memory,
	})

	reply := childReply{State: res.State, Stdout: res.Stdout, Value: res.Value}
	if err != nil {
		reply.Error = err.Error()
		reply.Kind = string(apperrors.KindOf(err))
	}
	return writeReply(w, reply)
}

func writeReply(w io.Writer, reply childReply) error {
	return json.NewEncoder(w).Encode(reply)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/altflow"
	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/config"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/feedback"
	"github.com/tabiq-ai/tabiq-engine/pkg/llm"
	"github.com/tabiq-ai/tabiq-engine/pkg/logging"
	"github.com/tabiq-ai/tabiq-engine/pkg/prompts"
	"github.com/tabiq-ai/tabiq-engine/pkg/responses"
	"github.com/tabiq-ai/tabiq-engine/pkg/sandbox"
	"github.com/tabiq-ai/tabiq-engine/pkg/sqlengine"
)

// Answer is the outcome of one question: the typed response plus the
// artifacts the HTTP layer reports alongside it.
type Answer struct {
	Response *responses.Response
	Question string // final question, possibly rephrased
	Code     string
	SQL      string // last SQL statement executed by the code
	Retries  int
}

// Engine runs the per-question state machine over a session.
type Engine struct {
	gateway   *llm.Gateway
	rephraser *altflow.Rephraser
	store     *feedback.Store
	executor  *sandbox.Executor
	isolated  *sandbox.IsolatedExecutor
	cfg       config.EngineConfig
	logger    *zap.Logger
}

func New(gateway *llm.Gateway, rephraser *altflow.Rephraser, store *feedback.Store, cfg config.EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		gateway:   gateway,
		rephraser: rephraser,
		store:     store,
		executor: sandbox.NewExecutor(
			time.Duration(cfg.CodeTimeoutSeconds)*time.Second,
			cfg.StdoutCapBytes,
			logger),
		cfg:    cfg,
		logger: logger.Named("engine"),
	}
	if cfg.ProcessIsolation {
		e.isolated = sandbox.NewIsolatedExecutor(
			time.Duration(cfg.CodeTimeoutSeconds)*time.Second, logger)
	}
	return e
}

// unsafePatterns are stripped from questions before they reach any
// prompt; they have no business in a data question.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bimport\s+(os|sys|subprocess)\b`),
	regexp.MustCompile(`(?i)\bopen\s*\([^)]*['"]w['"]`),
	regexp.MustCompile(`(?i)\b(exec|eval|compile)\s*\([^)]*\)?`),
	regexp.MustCompile(`(?i)\b(getattr|setattr|globals|locals)\s*\([^)]*\)?`),
}

// SanitizeQuestion removes unsafe code patterns from a question.
func SanitizeQuestion(q string) string {
	for _, p := range unsafePatterns {
		q = p.ReplaceAllString(q, "")
	}
	return strings.Join(strings.Fields(q), " ")
}

// Ask answers one question against a session. Concurrent calls against
// the same session serialize; the session's last_* fields are committed
// once, at the end, never mid-retry.
func (e *Engine) Ask(ctx context.Context, s *Session, question string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, apperrors.ErrSessionNotLoaded
	}

	original := SanitizeQuestion(question)
	log := e.logger.With(
		zap.String("session_id", s.ID),
		zap.String("question", logging.SanitizeQuery(original)))

	if hit := sqlengine.CheckForInjection(original); hit != nil {
		log.Warn("question rejected as SQL injection",
			zap.String("fingerprint", hit.Fingerprint))
		resp := responses.NewError(apperrors.KindValidation,
			"the question contains SQL injection patterns and was not processed", "")
		ans := &Answer{Response: resp, Question: original}
		s.commit(original, "", "", resp)
		return ans, nil
	}

	if resp := altflow.PreCheck(original, s.datasets); resp != nil {
		log.Info("pre-check answered without generation")
		ans := &Answer{Response: resp, Question: original}
		s.commit(original, "", "", resp)
		return ans, nil
	}

	ans := e.run(ctx, s, log, original)
	s.commit(original, ans.Code, ans.SQL, ans.Response)
	return ans, nil
}

// run is the retry loop. It owns no session state; everything it
// produces comes back in the Answer.
func (e *Engine) run(ctx context.Context, s *Session, log *zap.Logger, original string) *Answer {
	question := original
	ans := &Answer{Question: question}

	for attempt := 0; ; attempt++ {
		ans.Retries = attempt
		ans.Question = question

		code, sqlQuery, res, err := e.attempt(ctx, s, question)
		if code != "" {
			ans.Code = code
		}
		if sqlQuery != "" {
			ans.SQL = sqlQuery
		}

		if err == nil {
			resp, perr := responses.Parse(res.Value)
			if perr == nil {
				e.saveSuccess(s, question, ans)
				ans.Response = resp
				return ans
			}
			err = apperrors.Wrap(apperrors.KindTypeMismatch, "result did not match its tag", perr)
		}

		kind := altflow.Classify(err)
		log.Warn("attempt failed",
			zap.Int("attempt", attempt),
			zap.String("kind", string(kind)),
			zap.String("code", logging.Truncate(ans.Code, 400)),
			zap.Error(err))

		switch {
		case kind == apperrors.KindTableNotFound:
			ans.Response = altflow.MissingTable(tableFromError(err), s.sql.Tables())
			return ans

		case kind == apperrors.KindTimeout:
			ans.Response = responses.NewError(kind, "the analysis timed out", ans.Code)
			return ans

		case kind == apperrors.KindValidation:
			ans.Response = responses.NewError(kind, fmt.Sprintf("generated code was rejected: %v", err), ans.Code)
			return ans

		case altflow.Retryable(kind) && attempt < e.cfg.MaxRetries:
			question = e.rephraser.Rephrase(ctx, question, err.Error(), s.datasets)
			log.Info("retrying with rephrased question",
				zap.String("rephrased", logging.SanitizeQuery(question)))

		default:
			ans.Response = altflow.OfferPredefined(original, apperrors.KindExhaustedRetries, s.datasets)
			return ans
		}
	}
}

// attempt performs one generate-execute pass.
func (e *Engine) attempt(ctx context.Context, s *Session, question string) (code, sqlQuery string, res *sandbox.Result, err error) {
	past, ferr := e.store.FindSimilar(question)
	if ferr != nil {
		e.logger.Warn("similar-query lookup failed", zap.Error(ferr))
	}
	pastQueries := make([]prompts.PastQuery, 0, len(past))
	for _, p := range past {
		pastQueries = append(pastQueries, prompts.PastQuery{Question: p.Question, Code: p.Code})
	}

	llmCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.LLMTimeoutSeconds)*time.Second)
	code, err = e.gateway.Generate(llmCtx, prompts.System(), prompts.User(s.datasets, question, pastQueries))
	cancel()
	if err != nil {
		return code, "", nil, err
	}

	// The interpreter goroutine can outlive a timed out Execute and keep
	// calling the SQL capability; the mutex keeps the last-SQL handoff
	// free of races with that straggler.
	var sqlMu sync.Mutex
	var lastSQL string
	env := sandbox.Env{
		Datasets: datasetRows(s.datasets),
		SQL: func(query string) ([]map[string]any, error) {
			sqlMu.Lock()
			lastSQL = query
			sqlMu.Unlock()
			result, qerr := s.sql.Query(ctx, query)
			if qerr != nil {
				return nil, qerr
			}
			return result.Rows, nil
		},
	}

	if e.isolated != nil && e.isolated.Supports(code) {
		res, err = e.isolated.Execute(ctx, code, env)
	} else {
		res, err = e.executor.Execute(ctx, code, env)
	}
	sqlMu.Lock()
	sqlQuery = lastSQL
	sqlMu.Unlock()
	return code, sqlQuery, res, err
}

func (e *Engine) saveSuccess(s *Session, question string, ans *Answer) {
	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	err := e.store.SaveQuery(feedback.SavedQuery{
		Question: question,
		Code:     ans.Code,
		SQL:      ans.SQL,
		Datasets: names,
	})
	if err != nil {
		e.logger.Warn("saving successful query failed", zap.Error(err))
	}
}

// tableFromError pulls the offending table name out of a typed or
// textual table-not-found error.
func tableFromError(err error) string {
	var notFound *apperrors.TableNotFoundError
	if errors.As(err, &notFound) {
		return notFound.Name
	}
	msg := err.Error()
	if idx := strings.Index(msg, "no such table:"); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("no such table:"):])
	}
	return "unknown"
}

func datasetRows(datasets map[string]*dataset.Dataset) map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(datasets))
	for name, ds := range datasets {
		out[name] = ds.RowMaps()
	}
	return out
}

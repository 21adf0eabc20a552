// Package engine orchestrates one question end to end: pre-check,
// prompt, generation, sandboxed execution, classification, retry, and
// response typing.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/responses"
	"github.com/tabiq-ai/tabiq-engine/pkg/sqlengine"
)

// historyCap bounds the per-session query history ring.
const historyCap = 20

// HistoryEntry is one finished question in a session.
type HistoryEntry struct {
	Question     string `json:"question"`
	Code         string `json:"code,omitempty"`
	ResponseType string `json:"response_type"`
}

// Session owns one loaded file: its datasets, its SQL engine, and the
// last query state. A session is single-writer; Ask serializes on mu.
type Session struct {
	ID string

	mu       sync.Mutex
	datasets map[string]*dataset.Dataset
	sql      *sqlengine.Engine
	loaded   bool

	lastQuestion string
	lastCode     string
	lastSQL      string
	lastResponse *responses.Response

	history []HistoryEntry
}

// NewSession wraps a fresh SQL engine. Datasets are attached by Load.
func NewSession(id string, sql *sqlengine.Engine) *Session {
	return &Session{
		ID:       id,
		sql:      sql,
		datasets: map[string]*dataset.Dataset{},
	}
}

// Load registers datasets into the session's engine and marks the
// session queryable. Relationship detection runs across everything
// loaded so far.
func (s *Session) Load(datasets []*dataset.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ds := range datasets {
		if err := s.sql.RegisterDataset(context.Background(), ds); err != nil {
			return err
		}
		s.datasets[ds.Name] = ds
	}
	dataset.DetectRelationships(s.datasets)
	s.loaded = true
	return nil
}

// RegisterView exposes a combined view (directory loads) in the engine.
func (s *Session) RegisterView(name, selectSQL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sql.RegisterView(context.Background(), name, selectSQL)
}

// Loaded reports whether the session can be queried.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Datasets returns the loaded datasets. The map is shared; datasets
// are immutable after load.
func (s *Session) Datasets() map[string]*dataset.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*dataset.Dataset, len(s.datasets))
	for name, ds := range s.datasets {
		out[name] = ds
	}
	return out
}

// Query runs one SQL statement against the session's engine.
func (s *Session) Query(ctx context.Context, sqlText string) (*sqlengine.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, apperrors.ErrSessionNotLoaded
	}
	return s.sql.Query(ctx, sqlText)
}

// LastState returns the committed state of the most recent query.
func (s *Session) LastState() (question, code, sqlQuery string, resp *responses.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuestion, s.lastCode, s.lastSQL, s.lastResponse
}

// History returns the bounded ring of finished questions, oldest first.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

// commit atomically records the outcome of one query. Intermediate
// retry attempts never pass through here.
func (s *Session) commit(question, code, sqlQuery string, resp *responses.Response) {
	s.lastQuestion = question
	s.lastCode = code
	s.lastSQL = sqlQuery
	s.lastResponse = resp

	s.history = append(s.history, HistoryEntry{
		Question:     question,
		Code:         code,
		ResponseType: string(resp.Tag),
	})
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// Close releases the session's SQL engine.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return s.sql.Close()
}

// Registry maps session ids to sessions, safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: map[string]*Session{},
		logger:   logger.Named("sessions"),
	}
}

// Put stores a session under its id.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session or a typed not-found error.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

// Remove closes and forgets a session. Removing an unknown id is a
// no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		if err := s.Close(); err != nil {
			r.logger.Warn("session close failed", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// IDs lists registered session ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

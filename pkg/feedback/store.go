// Package feedback persists successful queries and user feedback as
// JSON files, and retrieves past queries similar to a new question to
// ground generation.
package feedback

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	successfulQueriesFile = "successful_queries.json"
	userFeedbackFile      = "user_feedback.json"
)

// SavedQuery is one successful (question, code) pair.
type SavedQuery struct {
	Question  string    `json:"question"`
	Code      string    `json:"code"`
	SQL       string    `json:"sql,omitempty"`
	Datasets  []string  `json:"datasets,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserFeedback is a free-text remark a user left about an answer.
type UserFeedback struct {
	FileID    string    `json:"file_id"`
	Query     string    `json:"query"`
	Feedback  string    `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}

// Store owns the two JSON files. All processes' writers share one
// in-process mutex; writes go through a temp file and rename so a
// crash never truncates the store.
type Store struct {
	queryDir    string
	feedbackDir string
	logger      *zap.Logger

	mu sync.Mutex
}

// NewStore creates the backing directories if needed.
func NewStore(queryDir, feedbackDir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, dir := range []string{queryDir, feedbackDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create feedback dir %s: %w", dir, err)
		}
	}
	return &Store{
		queryDir:    queryDir,
		feedbackDir: feedbackDir,
		logger:      logger.Named("feedback"),
	}, nil
}

// SaveQuery records a successful query. One entry is kept per
// normalized question; re-asking replaces the old entry and moves it to
// the most recent position.
func (s *Store) SaveQuery(q SavedQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now().UTC()
	}

	path := filepath.Join(s.queryDir, successfulQueriesFile)
	var queries []SavedQuery
	if err := readJSON(path, &queries); err != nil {
		return err
	}

	key := normalizeQuestion(q.Question)
	kept := queries[:0]
	for _, existing := range queries {
		if normalizeQuestion(existing.Question) != key {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, q)
	return writeJSON(path, kept)
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Queries returns every saved query.
func (s *Store) Queries() ([]SavedQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var queries []SavedQuery
	err := readJSON(filepath.Join(s.queryDir, successfulQueriesFile), &queries)
	return queries, err
}

// SaveFeedback appends a user remark.
func (s *Store) SaveFeedback(f UserFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}

	path := filepath.Join(s.feedbackDir, userFeedbackFile)
	var entries []UserFeedback
	if err := readJSON(path, &entries); err != nil {
		return err
	}
	entries = append(entries, f)
	return writeJSON(path, entries)
}

// Feedback returns every saved remark.
func (s *Store) Feedback() ([]UserFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []UserFeedback
	err := readJSON(filepath.Join(s.feedbackDir, userFeedbackFile), &entries)
	return entries, err
}

// FindSimilar returns up to three saved queries whose questions are
// similar to the given one, most recent first.
func (s *Store) FindSimilar(question string) ([]SavedQuery, error) {
	queries, err := s.Queries()
	if err != nil {
		return nil, err
	}

	var matches []SavedQuery
	for i := len(queries) - 1; i >= 0 && len(matches) < 3; i-- {
		if Similar(question, queries[i].Question) {
			matches = append(matches, queries[i])
		}
	}
	return matches, nil
}

// Cleanup drops entries older than maxAgeDays from both stores.
func (s *Store) Cleanup(maxAgeDays int) error {
	if maxAgeDays <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	queryPath := filepath.Join(s.queryDir, successfulQueriesFile)
	var queries []SavedQuery
	if err := readJSON(queryPath, &queries); err != nil {
		return err
	}
	kept := queries[:0]
	for _, q := range queries {
		if q.Timestamp.After(cutoff) {
			kept = append(kept, q)
		}
	}
	if len(kept) < len(queries) {
		s.logger.Info("expired saved queries removed", zap.Int("removed", len(queries)-len(kept)))
		if err := writeJSON(queryPath, kept); err != nil {
			return err
		}
	}

	feedbackPath := filepath.Join(s.feedbackDir, userFeedbackFile)
	var entries []UserFeedback
	if err := readJSON(feedbackPath, &entries); err != nil {
		return err
	}
	keptFb := entries[:0]
	for _, f := range entries {
		if f.Timestamp.After(cutoff) {
			keptFb = append(keptFb, f)
		}
	}
	if len(keptFb) < len(entries) {
		return writeJSON(feedbackPath, keptFb)
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

package feedback

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "query_cache"), filepath.Join(dir, "user_feedback"), nil)
	require.NoError(t, err)
	return s
}

func TestSaveAndListQueries(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveQuery(SavedQuery{Question: "total sales", Code: "result := 1"}))
	require.NoError(t, s.SaveQuery(SavedQuery{Question: "sales by month", Code: "result := 2"}))

	queries, err := s.Queries()
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "total sales", queries[0].Question)
	assert.False(t, queries[0].Timestamp.IsZero())
}

func TestSaveQuery_DedupesByQuestion(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveQuery(SavedQuery{Question: "total sales", Code: "result := 1"}))
	require.NoError(t, s.SaveQuery(SavedQuery{Question: "list all customers", Code: "result := 2"}))
	require.NoError(t, s.SaveQuery(SavedQuery{Question: "  Total SALES ", Code: "result := 3"}))

	queries, err := s.Queries()
	require.NoError(t, err)
	require.Len(t, queries, 2)
	// The re-asked question keeps only its latest code, in the most
	// recent position.
	assert.Equal(t, "list all customers", queries[0].Question)
	assert.Equal(t, "  Total SALES ", queries[1].Question)
	assert.Equal(t, "result := 3", queries[1].Code)

	matches, err := s.FindSimilar("total sales")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "result := 3", matches[0].Code)
}

func TestSaveQuery_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	qDir, fDir := filepath.Join(dir, "q"), filepath.Join(dir, "f")

	s1, err := NewStore(qDir, fDir, nil)
	require.NoError(t, err)
	require.NoError(t, s1.SaveQuery(SavedQuery{Question: "q1", Code: "c1"}))

	s2, err := NewStore(qDir, fDir, nil)
	require.NoError(t, err)
	queries, err := s2.Queries()
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "c1", queries[0].Code)
}

func TestSaveFeedback(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveFeedback(UserFeedback{FileID: "abc", Query: "totals", Feedback: "wrong month"}))

	entries, err := s.Feedback()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wrong month", entries[0].Feedback)
}

func TestFindSimilar_CapsAtThree(t *testing.T) {
	s := newTestStore(t)
	for _, q := range []string{
		"total sales per month",
		"total sales per year",
		"total sales per customer",
		"total sales per product",
	} {
		require.NoError(t, s.SaveQuery(SavedQuery{Question: q, Code: "x"}))
	}
	require.NoError(t, s.SaveQuery(SavedQuery{Question: "list all customers", Code: "y"}))

	matches, err := s.FindSimilar("total sales per week")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	// Most recent similar entries win.
	assert.Equal(t, "total sales per product", matches[0].Question)
}

func TestFindSimilar_NoMatch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveQuery(SavedQuery{Question: "inventory level check", Code: "x"}))

	matches, err := s.FindSimilar("average ticket duration")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCleanup_DropsExpired(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveQuery(SavedQuery{
		Question: "old", Code: "x", Timestamp: time.Now().UTC().AddDate(0, 0, -120),
	}))
	require.NoError(t, s.SaveQuery(SavedQuery{Question: "fresh", Code: "y"}))

	require.NoError(t, s.Cleanup(90))

	queries, err := s.Queries()
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "fresh", queries[0].Question)
}

func TestWriteIsAtomic(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveQuery(SavedQuery{Question: "q", Code: "c"}))

	// No stray temp file is left behind.
	entries, err := os.ReadDir(s.queryDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "successful_queries.json", entries[0].Name())
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "identical", a: "total sales", b: "total sales", want: true},
		{name: "containment", a: "show me the total sales please", b: "total sales", want: true},
		{name: "token overlap", a: "total sales per month", b: "total sales per year", want: true},
		{name: "case and spacing", a: "Total   SALES", b: "total sales", want: true},
		{name: "unrelated", a: "inventory level", b: "average duration", want: false},
		{name: "empty", a: "", b: "total", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Similar(tt.a, tt.b))
		})
	}
}

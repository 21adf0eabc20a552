package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), 1, nil)
	require.NoError(t, err)
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	info, err := s.Save("vendas.csv", "sales data", "text/csv",
		strings.NewReader("data,valor\n2024-01-05,12.5\n"))
	require.NoError(t, err)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "vendas.csv", info.Filename)
	assert.Equal(t, "sales data", info.Description)
	assert.Positive(t, info.SizeBytes)

	got, err := s.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Path, got.Path)

	content, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "2024-01-05")
}

func TestGet_Unknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestSave_PathTraversalStripped(t *testing.T) {
	s := newTestStore(t)

	info, err := s.Save("../../etc/passwd", "", "", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", info.Filename)
	assert.True(t, strings.HasPrefix(info.Path, filepath.Join(s.baseDir, info.ID)))
}

func TestSave_SizeLimit(t *testing.T) {
	s := newTestStore(t)

	big := strings.NewReader(strings.Repeat("a", 1024*1024+1))
	_, err := s.Save("big.csv", "", "", big)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	// A rejected upload leaves no directory behind.
	assert.Empty(t, s.List())
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, 1, nil)
	require.NoError(t, err)

	info, err := s.Save("a.csv", "", "", strings.NewReader("x\n1"))
	require.NoError(t, err)

	reopened, err := NewStore(dir, 1, nil)
	require.NoError(t, err)
	got, err := reopened.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", got.Filename)
}

func TestList_NewestFirst(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Save("a.csv", "", "", strings.NewReader("x"))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.Save("b.csv", "", "", strings.NewReader("y"))
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)

	info, err := s.Save("a.csv", "", "", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Remove(info.ID))

	_, err = s.Get(info.ID)
	assert.Error(t, err)
	_, err = os.Stat(info.Path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Remove(info.ID))
}

// Package uploads persists uploaded data files on disk: one directory
// per file id, plus a JSON index of upload metadata.
package uploads

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
)

// metadataFile is the index sitting next to the per-file directories.
const metadataFile = "metadata.json"

// FileInfo describes one stored upload.
type FileInfo struct {
	ID          string    `json:"file_id"`
	Filename    string    `json:"filename"`
	Description string    `json:"description,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Path        string    `json:"path"`
}

// Store keeps uploads under {baseDir}/{file_id}/{filename}.
type Store struct {
	baseDir  string
	maxBytes int64
	logger   *zap.Logger

	mu    sync.Mutex
	index map[string]FileInfo
}

// NewStore opens (or creates) the upload directory and loads the index.
func NewStore(baseDir string, maxFileSizeMB int64, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		maxBytes: maxFileSizeMB * 1024 * 1024,
		logger:   logger.Named("uploads"),
		index:    map[string]FileInfo{},
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save streams an upload to disk and records it in the index. The
// returned FileInfo carries the generated file id.
func (s *Store) Save(filename, description, contentType string, r io.Reader) (*FileInfo, error) {
	filename = sanitizeFilename(filename)
	if filename == "" {
		return nil, apperrors.New(apperrors.KindValidation, "upload has no usable filename")
	}

	id := uuid.NewString()
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create file dir: %w", err)
	}

	path := filepath.Join(dir, filename)
	size, err := s.writeFile(path, r)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	info := FileInfo{
		ID:          id,
		Filename:    filename,
		Description: description,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedAt:  time.Now().UTC(),
		Path:        path,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[id] = info
	if err := s.saveIndexLocked(); err != nil {
		delete(s.index, id)
		os.RemoveAll(dir)
		return nil, err
	}

	s.logger.Info("file stored",
		zap.String("file_id", id),
		zap.String("filename", filename),
		zap.Int64("size_bytes", size))
	return &info, nil
}

func (s *Store) writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	limit := io.LimitReader(r, s.maxBytes+1)
	size, err := io.Copy(f, limit)
	if err != nil {
		return 0, fmt.Errorf("write upload: %w", err)
	}
	if size > s.maxBytes {
		return 0, apperrors.Newf(apperrors.KindValidation,
			"file exceeds the %d MB limit", s.maxBytes/(1024*1024))
	}
	return size, nil
}

// Get returns the metadata for one file id.
func (s *Store) Get(id string) (*FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.index[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown file id %q", id)
	}
	return &info, nil
}

// List returns all stored files, newest first.
func (s *Store) List() []FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileInfo, 0, len(s.index))
	for _, info := range s.index {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}

// Remove deletes the file directory and its index entry.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return apperrors.Newf(apperrors.KindValidation, "unknown file id %q", id)
	}
	delete(s.index, id)
	if err := s.saveIndexLocked(); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, id))
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read upload index: %w", err)
	}
	var entries []FileInfo
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode upload index: %w", err)
	}
	for _, e := range entries {
		s.index[e.ID] = e
	}
	return nil
}

// saveIndexLocked writes the index atomically. Caller holds mu.
func (s *Store) saveIndexLocked() error {
	entries := make([]FileInfo, 0, len(s.index))
	for _, info := range s.index {
		entries = append(entries, info)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode upload index: %w", err)
	}

	path := filepath.Join(s.baseDir, metadataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write upload index: %w", err)
	}
	return os.Rename(tmp, path)
}

// sanitizeFilename keeps only the base name and strips path separators
// and parent references.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "..", "")
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

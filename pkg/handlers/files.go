package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/connectors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/engine"
	"github.com/tabiq-ai/tabiq-engine/pkg/sqlengine"
	"github.com/tabiq-ai/tabiq-engine/pkg/uploads"
)

// DatasetSummary is the per-table shape reported after a load.
type DatasetSummary struct {
	Name       string   `json:"name"`
	Rows       int      `json:"rows"`
	Columns    []string `json:"columns"`
	PrimaryKey string   `json:"primary_key,omitempty"`
}

// UploadResponse confirms a stored and loaded file.
type UploadResponse struct {
	FileID   string           `json:"file_id"`
	Filename string           `json:"filename"`
	Datasets []DatasetSummary `json:"datasets"`
	Message  string           `json:"message"`
}

// FileResponse describes one stored file.
type FileResponse struct {
	uploads.FileInfo
	EngineLoaded bool `json:"engine_loaded"`
}

// FilesHandler owns upload storage and session lifecycle.
type FilesHandler struct {
	files       *uploads.Store
	registry    *engine.Registry
	maxBodySize int64
	logger      *zap.Logger
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(files *uploads.Store, registry *engine.Registry, maxFileSizeMB int64, logger *zap.Logger) *FilesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilesHandler{
		files:       files,
		registry:    registry,
		maxBodySize: (maxFileSizeMB + 1) * 1024 * 1024,
		logger:      logger,
	}
}

// RegisterRoutes registers the file handler's routes on the given mux.
func (h *FilesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload/", h.Upload)
	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /files/", h.List)
	mux.HandleFunc("GET /files/{fid}", h.GetFile)
	mux.HandleFunc("POST /files/{fid}/load", h.LoadFile)
	mux.HandleFunc("DELETE /session/{sid}", h.DeleteSession)
}

// Upload handles POST /upload/ requests: store the multipart file,
// parse it into datasets, and open a queryable session under the new
// file id.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_upload", "Expected a multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "missing_file", "No file provided in the 'file' field")
		return
	}
	defer file.Close()

	description := r.FormValue("description")
	info, err := h.files.Save(header.Filename, description, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeAppError(w, err, "upload_failed")
		return
	}

	datasets, err := h.openSession(r, info)
	if err != nil {
		if rmErr := h.files.Remove(info.ID); rmErr != nil {
			h.logger.Warn("cleanup of failed upload failed", zap.Error(rmErr))
		}
		h.writeAppError(w, err, "parse_failed")
		return
	}

	response := UploadResponse{
		FileID:   info.ID,
		Filename: info.Filename,
		Datasets: summarize(datasets),
		Message:  "File loaded and ready for questions",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode upload response", zap.Error(err))
	}
}

// List handles GET /files/ requests.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	stored := h.files.List()
	out := make([]FileResponse, 0, len(stored))
	for _, info := range stored {
		out = append(out, FileResponse{FileInfo: info, EngineLoaded: h.sessionLoaded(info.ID)})
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"files": out}); err != nil {
		h.logger.Error("Failed to encode file list", zap.Error(err))
	}
}

// GetFile handles GET /files/{fid} requests.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	info, err := h.files.Get(r.PathValue("fid"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "file_not_found", err.Error())
		return
	}
	response := FileResponse{FileInfo: *info, EngineLoaded: h.sessionLoaded(info.ID)}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode file response", zap.Error(err))
	}
}

// LoadFile handles POST /files/{fid}/load requests: reopen a session
// for an already stored file, replacing any existing one.
func (h *FilesHandler) LoadFile(w http.ResponseWriter, r *http.Request) {
	info, err := h.files.Get(r.PathValue("fid"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "file_not_found", err.Error())
		return
	}

	h.registry.Remove(info.ID)
	datasets, err := h.openSession(r, info)
	if err != nil {
		h.writeAppError(w, err, "parse_failed")
		return
	}

	response := UploadResponse{
		FileID:   info.ID,
		Filename: info.Filename,
		Datasets: summarize(datasets),
		Message:  "File loaded and ready for questions",
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode load response", zap.Error(err))
	}
}

// DeleteSession handles DELETE /session/{sid} requests. With
// delete_file=true the stored upload is removed as well.
func (h *FilesHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sid")
	if _, err := h.registry.Get(id); err != nil {
		h.writeError(w, http.StatusNotFound, "session_not_found", "No session with that id")
		return
	}
	h.registry.Remove(id)

	deleteFile, _ := strconv.ParseBool(r.URL.Query().Get("delete_file"))
	if deleteFile {
		if err := h.files.Remove(id); err != nil {
			h.logger.Warn("stored file removal failed", zap.String("file_id", id), zap.Error(err))
		}
	}

	response := map[string]any{"session_id": id, "deleted": true, "file_deleted": deleteFile}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode delete response", zap.Error(err))
	}
}

// openSession parses the stored file and registers a fresh session
// under its file id.
func (h *FilesHandler) openSession(r *http.Request, info *uploads.FileInfo) ([]*dataset.Dataset, error) {
	datasets, view, err := connectors.LoadSource(r.Context(), info.Path, connectors.Options{
		Description: info.Description,
		Logger:      h.logger,
	})
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "file contains no usable data")
	}

	sqlEngine, err := sqlengine.New(h.logger)
	if err != nil {
		return nil, err
	}
	session := engine.NewSession(info.ID, sqlEngine)
	if err := session.Load(datasets); err != nil {
		session.Close()
		return nil, err
	}
	if view != nil {
		if err := session.RegisterView(view.Name, view.SelectSQL); err != nil {
			session.Close()
			return nil, err
		}
	}
	h.registry.Put(session)

	h.logger.Info("session opened",
		zap.String("file_id", info.ID),
		zap.Int("datasets", len(datasets)))
	return datasets, nil
}

func (h *FilesHandler) sessionLoaded(id string) bool {
	s, err := h.registry.Get(id)
	return err == nil && s.Loaded()
}

func (h *FilesHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *FilesHandler) writeAppError(w http.ResponseWriter, err error, code string) {
	status := http.StatusInternalServerError
	if apperrors.KindOf(err) == apperrors.KindValidation {
		status = http.StatusBadRequest
	}
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	h.writeError(w, status, code, err.Error())
}

func summarize(datasets []*dataset.Dataset) []DatasetSummary {
	out := make([]DatasetSummary, 0, len(datasets))
	for _, ds := range datasets {
		out = append(out, DatasetSummary{
			Name:       ds.Name,
			Rows:       ds.RowCount(),
			Columns:    append([]string(nil), ds.Columns...),
			PrimaryKey: ds.PrimaryKey,
		})
	}
	return out
}

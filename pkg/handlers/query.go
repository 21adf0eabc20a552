package handlers

import (
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tabiq-ai/tabiq-engine/pkg/apperrors"
	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
	"github.com/tabiq-ai/tabiq-engine/pkg/engine"
	"github.com/tabiq-ai/tabiq-engine/pkg/feedback"
	"github.com/tabiq-ai/tabiq-engine/pkg/jsonutil"
	"github.com/tabiq-ai/tabiq-engine/pkg/responses"
)

// defaultMaxRows caps the tabular payload of a query response when the
// configuration does not say otherwise.
const defaultMaxRows = 25

// QueryResponse is the wire shape of an answered question.
type QueryResponse struct {
	Type     string `json:"type"`
	Query    string `json:"query"`
	Analysis string `json:"analysis,omitempty"`
	SQLQuery string `json:"sql_query,omitempty"`

	Value float64          `json:"value,omitempty"`
	Text  string           `json:"text,omitempty"`
	Data  []map[string]any `json:"data,omitempty"`

	Chart     map[string]any `json:"chart,omitempty"`
	ChartType string         `json:"chart_type,omitempty"`
	ImagePath string         `json:"image_path,omitempty"`

	Error *responses.ErrorValue `json:"error,omitempty"`

	TotalRecords           int  `json:"total_records,omitempty"`
	ResultsLimited         bool `json:"results_limited,omitempty"`
	VisualizationAvailable bool `json:"visualization_available,omitempty"`
	Retries                int  `json:"retries,omitempty"`
}

// SessionResponse is the inspectable state of one session.
type SessionResponse struct {
	SessionID        string                `json:"session_id"`
	Loaded           bool                  `json:"loaded"`
	Datasets         []string              `json:"datasets"`
	LastQuestion     string                `json:"last_question,omitempty"`
	LastCode         string                `json:"last_code,omitempty"`
	LastSQL          string                `json:"last_sql,omitempty"`
	LastResponseType string                `json:"last_response_type,omitempty"`
	LastResponse     *responses.Response   `json:"last_response,omitempty"`
	History          []engine.HistoryEntry `json:"history"`
}

// QueryHandler answers questions against loaded sessions.
type QueryHandler struct {
	engine   *engine.Engine
	registry *engine.Registry
	store    *feedback.Store
	maxRows  int
	logger   *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(eng *engine.Engine, registry *engine.Registry, store *feedback.Store, maxRows int, logger *zap.Logger) *QueryHandler {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{engine: eng, registry: registry, store: store, maxRows: maxRows, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /query/", h.Query)
	mux.HandleFunc("POST /query", h.Query)
	mux.HandleFunc("POST /visualization/", h.Visualization)
	mux.HandleFunc("POST /visualization", h.Visualization)
	mux.HandleFunc("POST /feedback/", h.Feedback)
	mux.HandleFunc("POST /feedback", h.Feedback)
	mux.HandleFunc("GET /session/{sid}", h.Session)
}

// Query handles POST /query/ requests: file_id and query form fields in.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	fileID := r.FormValue("file_id")
	question := r.FormValue("query")
	if fileID == "" || question == "" {
		h.writeError(w, http.StatusBadRequest, "missing_fields", "Both file_id and query are required")
		return
	}

	session, err := h.registry.Get(fileID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "session_not_found",
			"No loaded session for that file_id; upload the file or load it first")
		return
	}

	ans, err := h.engine.Ask(r.Context(), session, question)
	if err != nil {
		h.writeError(w, http.StatusConflict, "session_not_ready", err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusOK, buildQueryResponse(question, ans, h.maxRows)); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// Visualization handles POST /visualization/ requests: build an apex
// chart directly from a loaded dataset or from an ad hoc SQL result.
func (h *QueryHandler) Visualization(w http.ResponseWriter, r *http.Request) {
	fileID := r.FormValue("file_id")
	if fileID == "" {
		h.writeError(w, http.StatusBadRequest, "missing_fields", "file_id is required")
		return
	}
	session, err := h.registry.Get(fileID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "session_not_found", "No loaded session for that file_id")
		return
	}

	ds, err := h.chartSource(r, session)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_source", err.Error())
		return
	}

	spec, err := engine.BuildChart(ds,
		r.FormValue("chart_type"),
		r.FormValue("x_column"),
		r.FormValue("y_column"),
		r.FormValue("title"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "chart_failed", err.Error())
		return
	}

	response := QueryResponse{
		Type:      string(responses.TagChart),
		Query:     r.FormValue("title"),
		Chart:     spec.Config,
		ChartType: spec.ChartType,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode visualization response", zap.Error(err))
	}
}

// Feedback handles POST /feedback/ requests.
func (h *QueryHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	fileID := r.FormValue("file_id")
	query := r.FormValue("query")
	text := r.FormValue("feedback")
	if fileID == "" || query == "" || text == "" {
		h.writeError(w, http.StatusBadRequest, "missing_fields", "file_id, query, and feedback are required")
		return
	}

	err := h.store.SaveFeedback(feedback.UserFeedback{
		FileID:    fileID,
		Query:     query,
		Feedback:  text,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "saved"}); err != nil {
		h.logger.Error("Failed to encode feedback response", zap.Error(err))
	}
}

// Session handles GET /session/{sid} requests.
func (h *QueryHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.Get(r.PathValue("sid"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "session_not_found", "No session with that id")
		return
	}

	names := make([]string, 0)
	for name := range session.Datasets() {
		names = append(names, name)
	}
	sort.Strings(names)

	question, code, sqlQuery, resp := session.LastState()
	response := SessionResponse{
		SessionID:    session.ID,
		Loaded:       session.Loaded(),
		Datasets:     names,
		LastQuestion: question,
		LastCode:     code,
		LastSQL:      sqlQuery,
		History:      session.History(),
	}
	if resp != nil {
		response.LastResponseType = string(resp.Tag)
		response.LastResponse = resp
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode session response", zap.Error(err))
	}
}

// chartSource picks the dataset to plot: an ad hoc SQL result when a
// query is given, otherwise a named or default loaded dataset.
func (h *QueryHandler) chartSource(r *http.Request, session *engine.Session) (*dataset.Dataset, error) {
	if query := r.FormValue("query"); query != "" {
		res, err := session.Query(r.Context(), query)
		if err != nil {
			return nil, err
		}
		return dataset.FromRowMaps("query_result", res.Columns, res.Rows), nil
	}

	datasets := session.Datasets()
	if name := r.FormValue("dataset"); name != "" {
		if ds, ok := datasets[name]; ok {
			return ds, nil
		}
		return nil, apperrors.Newf(apperrors.KindValidation, "dataset %q is not loaded", name)
	}

	names := make([]string, 0, len(datasets))
	for n := range datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return datasets[names[0]], nil
}

// buildQueryResponse flattens a typed answer onto the wire shape.
func buildQueryResponse(question string, ans *engine.Answer, maxRows int) QueryResponse {
	out := QueryResponse{
		Type:     string(ans.Response.Tag),
		Query:    question,
		Analysis: ans.Code,
		SQLQuery: ans.SQL,
		Retries:  ans.Retries,
	}

	switch ans.Response.Tag {
	case responses.TagScalar:
		out.Value = ans.Response.Scalar
	case responses.TagText:
		out.Text = ans.Response.Text
	case responses.TagTable:
		rows := ans.Response.Table
		out.TotalRecords = len(rows)
		if len(rows) > maxRows {
			rows = rows[:maxRows]
			out.ResultsLimited = true
		}
		out.Data = jsonutil.NormalizeRows(rows)
		out.VisualizationAvailable = true
	case responses.TagChart:
		out.ChartType = ans.Response.Chart.ChartType
		if ans.Response.Chart.Format == responses.FormatImage {
			out.ImagePath = ans.Response.Chart.Path
		} else {
			out.Chart = ans.Response.Chart.Config
		}
	case responses.TagError:
		out.Error = ans.Response.Err
	}
	return out
}

func (h *QueryHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

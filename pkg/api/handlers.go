package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/matchlog"
	"github.com/richard-senior/htft/pkg/report"
	"github.com/richard-senior/htft/pkg/tools"
	"github.com/richard-senior/htft/pkg/util/htft"
)

// APIHandler serves analyses over a match log loaded once at startup. A
// request may name another source inside dataDir, which is then loaded for
// that request only. URLs and paths outside dataDir are refused.
type APIHandler struct {
	mu       sync.RWMutex
	table    *matchlog.Table
	loadedAt time.Time
	dataDir  string
}

// NewAPIHandler creates a handler over table, which may be nil when every
// request names its own source. An empty dataDir allows no other sources.
func NewAPIHandler(table *matchlog.Table, dataDir string) *APIHandler {
	return &APIHandler{table: table, loadedAt: time.Now(), dataDir: dataDir}
}

// SetupRoutes configures the HTTP routes
func (h *APIHandler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/values", h.handleValues).Methods(http.MethodGet)
	r.HandleFunc("/analysis", h.handleAnalysis).Methods(http.MethodPost)
	r.HandleFunc("/reload", h.handleReload).Methods(http.MethodPost)
	return r
}

func (h *APIHandler) snapshot() *matchlog.Table {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.table
}

// load returns the table a request names. An empty source or the startup
// source itself is served from memory.
func (h *APIHandler) load(r *http.Request, source string) (*matchlog.Table, error) {
	table := h.snapshot()
	if source == "" || (table != nil && source == table.Source) {
		if table == nil {
			return nil, fmt.Errorf("%w: no match log loaded and no source given", htft.ErrInvalidRequest)
		}
		return table, nil
	}
	return matchlog.LoadWithin(r.Context(), h.dataDir, source)
}

func (h *APIHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := map[string]any{
		"status":    "ok",
		"maxWindow": htft.GetMaxWindowSize(),
		"loaded":    h.table != nil,
	}
	if h.table != nil {
		_, stats := h.table.Records()
		status["source"] = h.table.Source
		status["rows"] = stats
		status["loadedAt"] = h.loadedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) handleValues(w http.ResponseWriter, r *http.Request) {
	table, err := h.load(r, r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools.ValuesOf(table))
}

// handleAnalysis runs an analysis request. The report is JSON unless the
// format query parameter asks for html, markdown or text.
func (h *APIHandler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", htft.ErrInvalidRequest, err))
			return
		}
		format = parsed
	}

	var req matchlog.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON: %v", htft.ErrInvalidRequest, err))
		return
	}

	if _, err := req.Query(); err != nil {
		writeError(w, err)
		return
	}
	table, err := h.load(r, req.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.Info("Analysis requested", req.FirstHalfScore, req.FullTimeScore)

	rep, err := req.Run(r.Context(), table)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	if err := report.Render(w, rep, format); err != nil {
		logger.Error("Failed to render report", err)
	}
}

// handleReload reloads the startup match log from its source
func (h *APIHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	current := h.snapshot()
	if current == nil {
		writeError(w, fmt.Errorf("%w: no match log loaded", htft.ErrInvalidRequest))
		return
	}

	table, err := matchlog.Load(r.Context(), current.Source)
	if err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	h.table, h.loadedAt = table, time.Now()
	h.mu.Unlock()
	logger.Info("Reloaded match log", table.Source, table.Len())

	writeJSON(w, http.StatusOK, map[string]any{"source": table.Source, "rows": table.Len()})
}

func contentType(f report.Format) string {
	switch f {
	case report.FormatHTML:
		return "text/html; charset=utf-8"
	case report.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case report.FormatText:
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

// StatusCode maps an analysis error to an HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, matchlog.ErrSourceNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, htft.ErrStoreNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case htft.IsInvalidInput(err), errors.Is(err, matchlog.ErrUnsupportedSource):
		return http.StatusBadRequest
	case htft.IsReported(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", err)
	} else {
		logger.Debug("Request rejected", err)
	}

	body := map[string]any{"error": err.Error(), "status": status}
	var insufficient *htft.InsufficientDataError
	if errors.As(err, &insufficient) {
		body["found"] = insufficient.Found
		body["required"] = insufficient.Required
	}
	var unknown *htft.UnknownLabelError
	if errors.As(err, &unknown) && len(unknown.Suggestions) > 0 {
		body["suggestions"] = unknown.Suggestions
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", err)
	}
}

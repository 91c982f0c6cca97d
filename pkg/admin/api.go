// Package admin exposes the sniffer's capture history over HTTP for
// the dashboard and other tooling: filtered listing, statistics,
// export, persistence sync status, and live streaming of new entries.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Shubhon9/api-sniffer/pkg/export"
	"github.com/Shubhon9/api-sniffer/pkg/persist"
	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

// SyncReporter exposes persistence state for the sync-status endpoint.
// The persist.Store implements it; a nil reporter means persistence is
// disabled.
type SyncReporter interface {
	SyncStatus() persist.SyncStatus
}

// API serves the admin endpoints over the capture store.
type API struct {
	store requestlog.SubscribableStore
	sync  SyncReporter
	log   *slog.Logger
	mux   *http.ServeMux
}

// New creates the admin API. sync may be nil when persistence is off;
// a nil logger uses slog.Default().
func New(store requestlog.SubscribableStore, sync SyncReporter, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	a := &API{store: store, sync: sync, log: log, mux: http.NewServeMux()}
	a.routes()
	return a
}

func (a *API) routes() {
	a.mux.HandleFunc("GET /api/logs", a.handleListLogs)
	a.mux.HandleFunc("DELETE /api/logs", a.handleClearLogs)
	a.mux.HandleFunc("GET /api/logs/stream", a.handleStreamLogs)
	a.mux.HandleFunc("GET /api/logs/live", a.handleLiveLogs)
	a.mux.HandleFunc("GET /api/stats", a.handleStats)
	a.mux.HandleFunc("GET /api/export", a.handleExport)
	a.mux.HandleFunc("GET /api/sync-status", a.handleSyncStatus)
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// filterFromQuery builds a log filter from request query parameters.
//
// Supported parameters:
//   - method: exact HTTP method match
//   - status: exact response status code match
//   - path: regular expression matched against the request path
//   - since: RFC 3339 inclusive lower bound on capture time
//   - limit: maximum number of entries
//   - expr: expression predicate (e.g. responseTime > 100)
//   - bodyPath: JSONPath matched against request/response bodies
func filterFromQuery(r *http.Request) (*requestlog.Filter, error) {
	q := r.URL.Query()
	filter := &requestlog.Filter{
		Method:      q.Get("method"),
		PathPattern: q.Get("path"),
		Expr:        q.Get("expr"),
		BodyPath:    q.Get("bodyPath"),
	}
	if statusStr := q.Get("status"); statusStr != "" {
		status, err := strconv.Atoi(statusStr)
		if err != nil {
			return nil, err
		}
		filter.StatusCode = status
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}
		filter.Limit = limit
	}
	if sinceStr := q.Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return nil, err
		}
		filter.Since = since
	}
	return filter, nil
}

// handleListLogs handles GET /api/logs.
func (a *API) handleListLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	entries, err := a.store.List(filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}

// handleClearLogs handles DELETE /api/logs.
func (a *API) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	cleared := a.store.Count()
	a.store.Clear()
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Capture log cleared",
		"cleared": cleared,
	})
}

// handleStats handles GET /api/stats.
func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Stats())
}

// handleExport handles GET /api/export?format=json|csv with the same
// filter parameters as /api/logs.
func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.Format(r.URL.Query().Get("format"))
	if format == export.FormatUnknown {
		format = export.FormatJSON
	}
	if !format.IsValid() {
		writeError(w, http.StatusBadRequest, "unsupported_format",
			"unsupported export format: "+format.String())
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	entries, err := a.store.List(filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	data, err := export.Export(entries, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}

	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="api-sniffer-logs.csv"`)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="api-sniffer-logs.json"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleSyncStatus handles GET /api/sync-status.
func (a *API) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if a.sync == nil {
		writeError(w, http.StatusNotFound, "persistence_disabled",
			"File persistence is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, a.sync.SyncStatus())
}

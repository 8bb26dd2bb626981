package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faxcloud/analyzer/internal/analysis"
	"github.com/faxcloud/analyzer/internal/faxlog"
	"github.com/faxcloud/analyzer/internal/reports"
	"github.com/faxcloud/analyzer/internal/repository/postgres"
	"github.com/faxcloud/analyzer/internal/watcher"
)

const maxUploadBytes = 32 << 20 // 32 MB

// Handlers contains all HTTP handlers
type Handlers struct {
	service *reports.Service
	watcher *watcher.Watcher
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service *reports.Service) *Handlers {
	return &Handlers{service: service}
}

// SetWatcher sets the inbox watcher
func (h *Handlers) SetWatcher(w *watcher.Watcher) {
	h.watcher = w
}

// HealthCheck returns service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleUpload imports a transmission log export sent as multipart form
// data and returns the stored report with its first analysis run.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	tag := analysis.RunContext{
		ContractID:  r.FormValue("contract_id"),
		PeriodStart: r.FormValue("period_start"),
		PeriodEnd:   r.FormValue("period_end"),
	}

	outcome, err := h.service.ImportFile(r.Context(), header.Filename, data, tag)
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrDuplicate):
			respondError(w, http.StatusConflict, err.Error())
		case isStructuralError(err):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusCreated, outcome)
}

// isStructuralError reports whether the import failed before any row
// could be analyzed, i.e. the file itself is at fault.
func isStructuralError(err error) bool {
	var missing *faxlog.MissingColumnsError
	return errors.Is(err, faxlog.ErrEmptyTable) || errors.As(err, &missing)
}

// HandleListReports returns stored reports, newest first.
func (h *Handlers) HandleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	items, total, err := h.service.Repo().List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": items,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// HandleGetReport returns a single report by ID.
func (h *Handlers) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.service.Repo().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "report not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// HandleGetStats returns the analysis result of a report's latest run.
func (h *Handlers) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.service.Repo().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "report not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rep.LatestRunID == "" {
		respondError(w, http.StatusNotFound, "report has no completed run")
		return
	}

	result, err := h.service.ResultForRun(r.Context(), rep.LatestRunID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report_id":  rep.ID,
		"run_id":     rep.LatestRunID,
		"statistics": result.Statistics,
		"anomalies":  result.Anomalies,
	})
}

// HandleWatcherTrigger triggers a manual inbox scan.
func (h *Handlers) HandleWatcherTrigger(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		respondError(w, http.StatusServiceUnavailable, "watcher not initialized")
		return
	}
	if h.watcher.IsRunning() {
		respondJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
		return
	}
	h.watcher.ManualTrigger()
	respondJSON(w, http.StatusOK, map[string]string{"status": "triggered"})
}

// HandleWatcherStatus returns health and run state of the inbox watcher.
func (h *Handlers) HandleWatcherStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"initialized": h.watcher != nil,
	}
	if h.watcher != nil {
		status["healthy"] = h.watcher.IsHealthy()
		status["running"] = h.watcher.IsRunning()
		lastRun := h.watcher.LastRunAt()
		if !lastRun.IsZero() {
			status["last_run_at"] = lastRun
		}
	}
	respondJSON(w, http.StatusOK, status)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

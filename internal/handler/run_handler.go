package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dropoutpredictor/internal/apperr"
	"dropoutpredictor/internal/logger"
	"dropoutpredictor/internal/model"
	"dropoutpredictor/internal/service"

	"github.com/gorilla/mux"
)

// RunService reads back the runs of the current session.
type RunService interface {
	GetRun(id string) (*model.Run, error)
	ListRuns(page, limit int) ([]model.Run, int64, int, error)
}

type RunHandler struct {
	runs RunService
	log  *logger.Logger
}

func NewRunHandler(runs RunService, log *logger.Logger) *RunHandler {
	return &RunHandler{runs: runs, log: log}
}

// ListRuns returns one page of runs, newest first.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit < 1 {
		limit = 10
	}

	runs, totalCount, totalPages, err := h.runs.ListRuns(page, limit)
	if err != nil {
		h.log.Error("failed to list runs: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data":       runs,
		"page":       page,
		"limit":      limit,
		"total":      totalCount,
		"totalPages": totalPages,
	}
	h.writeJSON(w, response)
}

// GetRun returns the summary of one run.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, run)
}

// DownloadCSV serves the stored CSV export of a run.
func (h *RunHandler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ExportFileName+`"`)
	w.Write(run.ResultCSV)
}

// DownloadXLSX converts the stored export of a run to a workbook.
func (h *RunHandler) DownloadXLSX(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	header, rows, err := service.ParseExport(run.ResultCSV)
	if err != nil {
		h.log.Error("stored export of run %s is unreadable: %v", run.ID, err)
		http.Error(w, "Stored export is unreadable", http.StatusInternalServerError)
		return
	}
	data, err := service.ExportXLSX(header, rows)
	if err != nil {
		h.log.Error("failed to build workbook for run %s: %v", run.ID, err)
		http.Error(w, "Failed to build workbook", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.xlsx"`)
	w.Write(data)
}

func (h *RunHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "run id is required", http.StatusBadRequest)
		return nil, false
	}
	run, err := h.runs.GetRun(id)
	if apperr.Is(err, apperr.CodeNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.log.Error("failed to load run %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}

func (h *RunHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("error encoding response: %v", err)
	}
}

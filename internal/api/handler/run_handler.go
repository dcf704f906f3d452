package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"annotation-insights/internal/model"
	"annotation-insights/internal/pipeline"
	"annotation-insights/internal/store"
)

// CreateRun stores a run spec and executes it in the background
// @Summary Create a new run
// @Description Validate and store a run spec, then execute it asynchronously
// @Tags runs
// @Accept json
// @Produce json
// @Param spec body model.RunSpec true "Run specification"
// @Success 202 {object} map[string]interface{} "Run created"
// @Failure 400 {object} ErrorResponse "Invalid run spec"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var spec model.RunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := pipeline.ValidateSpec(&spec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := uuid.New().String()
	if err := h.Store.SaveRun(r.Context(), runID, spec); err != nil {
		h.Logger.Error("Failed to save run", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save run")
		return
	}
	h.startRun(runID, spec)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "Run created successfully",
		"runId":     runID,
		"status":    model.RunPending,
		"createdAt": time.Now().UTC(),
	})
}

func (h *Handler) startRun(runID string, spec model.RunSpec) {
	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		// the runner records failures itself
		h.Runner.Run(context.Background(), runID, spec)
	}()
}

// ListRuns lists every run
// @Summary List runs
// @Description Get every run with its current status, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} model.Run "Runs"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one run with its spec
// @Summary Get run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.Run "Run"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRunOutput returns the aggregated output of a finished run
// @Summary Get run output
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunOutput "Output"
// @Failure 404 {object} ErrorResponse "Run or output not found"
// @Router /runs/{id}/output [get]
func (h *Handler) GetRunOutput(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	out, err := h.Store.GetRunOutput(r.Context(), run.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Output not available, run is %s", run.Status))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve output")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRunLogs returns the log lines of a run
// @Summary Get run logs
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param stage query string false "Only this stage (load, aggregate, export)"
// @Success 200 {object} map[string]interface{} "Logs"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id}/logs [get]
func (h *Handler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	logs, err := h.Store.GetRunLogs(r.Context(), run.ID, r.URL.Query().Get("stage"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"logs":   logs,
		"count":  len(logs),
	})
}

// GetRunErrors returns the errors of a run
// @Summary Get run errors
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Errors"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Router /runs/{id}/errors [get]
func (h *Handler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	errs, err := h.Store.GetRunErrors(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve errors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"errors": errs,
		"count":  len(errs),
	})
}

// RetryRun executes a finished run again with its stored spec
// @Summary Retry run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 202 {object} map[string]interface{} "Retry initiated"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 409 {object} ErrorResponse "Run still in progress"
// @Router /runs/{id}/retry [post]
func (h *Handler) RetryRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	// the reset is a conditional claim, so concurrent retries start one runner
	switch err := h.Store.ResetRun(r.Context(), run.ID); {
	case errors.Is(err, store.ErrRunInProgress):
		msg := fmt.Sprintf("Run is %s and cannot be retried", run.Status)
		if finished(run.Status) {
			msg = "Run is already being retried"
		}
		writeError(w, http.StatusConflict, msg)
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Run not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to reset run")
		return
	}
	h.startRun(run.ID, run.Spec)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message": "Retry initiated",
		"run_id":  run.ID,
		"status":  model.RunRetrying,
	})
}

// DeleteRun removes a finished run and its exports
// @Summary Delete run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run deleted"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 409 {object} ErrorResponse "Run still in progress"
// @Router /runs/{id} [delete]
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	if !finished(run.Status) {
		writeError(w, http.StatusConflict, fmt.Sprintf("Run is %s and cannot be deleted", run.Status))
		return
	}
	if h.Output != nil {
		if err := h.Output.RemoveRunOutputs(run.ID); err != nil {
			h.Logger.Warn("Failed to delete run outputs", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	if err := h.Store.DeleteRun(r.Context(), run.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Run and all artifacts deleted successfully",
		"run_id":  run.ID,
	})
}

// DownloadFile serves an exported file
// @Summary Download export
// @Tags runs
// @Produce application/octet-stream
// @Param runID path string true "Run ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 404 {object} ErrorResponse "File not found"
// @Router /download/{runID}/{filename} [get]
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	runID, fileName := pathParam(r, 3), pathParam(r, 4)
	if runID == "" || fileName == "" || h.Output == nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	filePath := h.Output.ResolveFilePath(runID, fileName)
	if _, err := os.Stat(filePath); err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, filePath)
}

func (h *Handler) lookupRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	runID := pathParam(r, 3)
	if runID == "" {
		writeError(w, http.StatusBadRequest, "Run ID is required")
		return nil, false
	}
	run, err := h.Store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return nil, false
	}
	return run, true
}

func finished(status string) bool {
	return status == model.RunCompleted || status == model.RunFailed
}

package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"annotation-insights/internal/model"
	"annotation-insights/internal/pipeline"
)

// Analyze runs an aggregation synchronously
// @Summary Analyze a dataset
// @Description Validate, load and aggregate a run spec inline and return the output. Nothing is stored and exports are not written.
// @Tags analysis
// @Accept json
// @Produce json
// @Param spec body model.RunSpec true "Run specification"
// @Success 200 {object} model.RunOutput "Aggregated output"
// @Failure 400 {object} ErrorResponse "Invalid run spec"
// @Failure 502 {object} ErrorResponse "Upstream failure"
// @Router /analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var spec model.RunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	out, err := h.Runner.Analyze(r.Context(), spec)
	if err != nil {
		status := analysisStatus(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("Analysis failed", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// TargetKeys lists the fields of a schema
// @Summary List target keys
// @Description Flatten a schema's output contract into dotted field paths with their types
// @Tags analysis
// @Accept json
// @Produce json
// @Param schema body model.Schema true "Annotation schema"
// @Success 200 {array} model.TargetKey "Target keys"
// @Failure 400 {object} ErrorResponse "Invalid JSON payload"
// @Router /target-keys [post]
func (h *Handler) TargetKeys(w http.ResponseWriter, r *http.Request) {
	var schema model.Schema
	if err := json.NewDecoder(r.Body).Decode(&schema); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	keys := pipeline.TargetKeys(schema)
	if keys == nil {
		keys = []model.TargetKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

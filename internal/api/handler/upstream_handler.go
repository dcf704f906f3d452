package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"annotation-insights/internal/model"
)

const noUpstream = "No annotation API configured"

// ListModels lists the language models of the annotation API
// @Summary List available models
// @Tags upstream
// @Produce json
// @Param capability query string false "Capability filter, e.g. tools"
// @Success 200 {object} client.ModelList "Models"
// @Failure 502 {object} ErrorResponse "Failed to load models"
// @Failure 503 {object} ErrorResponse "No annotation API configured"
// @Router /models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.Upstream == nil {
		writeError(w, http.StatusServiceUnavailable, noUpstream)
		return
	}
	models, err := h.Upstream.ListAvailableModels(r.Context(), r.URL.Query().Get("capability"))
	if err != nil {
		h.Logger.Warn("Failed to load models", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to load models")
		return
	}
	writeJSON(w, http.StatusOK, models)
}

// RetryAnnotation re-runs one annotation result
// @Summary Retry annotation
// @Description Quick retry without a body or guided retry with a custom prompt
// @Tags upstream
// @Accept json
// @Produce json
// @Param id path int true "Annotation ID"
// @Param retry body model.AnnotationRetry false "Custom prompt"
// @Success 200 {object} model.AnnotationResult "Updated annotation"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 502 {object} ErrorResponse "Failed to retry annotation"
// @Router /annotations/{id}/retry [post]
func (h *Handler) RetryAnnotation(w http.ResponseWriter, r *http.Request) {
	if h.Upstream == nil {
		writeError(w, http.StatusServiceUnavailable, noUpstream)
		return
	}
	id, err := strconv.Atoi(pathParam(r, 3))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid annotation ID")
		return
	}
	var req model.AnnotationRetry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	result, err := h.Upstream.RetryAnnotation(r.Context(), id, req)
	if err != nil {
		h.Logger.Warn("Failed to retry annotation", zap.Int("annotation_id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to retry annotation")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CurateFragment stores a curated fragment and forwards it upstream
// @Summary Curate fragment
// @Description Forward a fragment promoted from an annotation run to the annotation API when one is configured, then persist it
// @Tags fragments
// @Accept json
// @Produce json
// @Param fragment body model.FragmentCuration true "Fragment"
// @Success 201 {object} model.Fragment "Stored fragment"
// @Failure 400 {object} ErrorResponse "Invalid fragment"
// @Failure 502 {object} ErrorResponse "Failed to curate fragment"
// @Router /fragments [post]
func (h *Handler) CurateFragment(w http.ResponseWriter, r *http.Request) {
	var req model.FragmentCuration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.AssetID <= 0 || req.FragmentKey == "" {
		writeError(w, http.StatusBadRequest, "asset_id and fragment_key are required")
		return
	}

	f := &model.Fragment{
		ID:            uuid.New().String(),
		AssetID:       req.AssetID,
		FragmentKey:   req.FragmentKey,
		FragmentValue: req.FragmentValue,
		SourceRunID:   req.SourceRunID,
		CuratedBy:     req.CuratedBy,
	}
	// stored only once the upstream has accepted it
	if h.Upstream != nil {
		if _, err := h.Upstream.CurateFragment(r.Context(), req); err != nil {
			h.Logger.Warn("Failed to curate fragment", zap.Int("asset_id", req.AssetID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "Failed to curate fragment")
			return
		}
		f.Forwarded = true
	}
	if err := h.Store.SaveFragment(r.Context(), f); err != nil {
		h.Logger.Error("Failed to save fragment", zap.String("fragment_id", f.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save fragment")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// ListFragments lists the curated fragments of an asset
// @Summary List fragments
// @Tags fragments
// @Produce json
// @Param id path int true "Asset ID"
// @Success 200 {array} model.Fragment "Fragments"
// @Failure 400 {object} ErrorResponse "Invalid asset ID"
// @Router /assets/{id}/fragments [get]
func (h *Handler) ListFragments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(pathParam(r, 3))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid asset ID")
		return
	}
	fragments, err := h.Store.ListFragments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve fragments")
		return
	}
	writeJSON(w, http.StatusOK, fragments)
}

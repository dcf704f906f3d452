package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"annotation-insights/internal/client"
	"annotation-insights/internal/pipeline"
	"annotation-insights/internal/store"
	"annotation-insights/pkg/utils"
)

// Handler serves the HTTP API. Upstream may be nil when no annotation API is
// configured; the endpoints that need it then answer 503.
type Handler struct {
	Store    *store.Store
	Runner   *pipeline.Runner
	Upstream *client.Client
	Output   *utils.OutputManager
	Logger   *zap.Logger

	runs sync.WaitGroup
}

func New(st *store.Store, runner *pipeline.Runner, upstream *client.Client, output *utils.OutputManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: st, Runner: runner, Upstream: upstream, Output: output, Logger: logger}
}

// Wait blocks until every background run has finished.
func (h *Handler) Wait() {
	h.runs.Wait()
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// pathParam returns segment i of the request path, "" when absent.
// /api/v1/runs/{id} has the id at index 3.
func pathParam(r *http.Request, i int) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if i < 0 || i >= len(parts) {
		return ""
	}
	return parts[i]
}

// analysisStatus maps an analysis error to an HTTP status.
func analysisStatus(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, pipeline.ErrInvalidSpec),
		errors.Is(err, pipeline.ErrSchemaNotFound),
		errors.Is(err, pipeline.ErrFieldNotFound),
		errors.Is(err, pipeline.ErrAmbiguousAlias),
		errors.Is(err, pipeline.ErrInvalidTimeFrame):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/services"
)

// ListCheckpointsResponse wraps the checkpoint list.
type ListCheckpointsResponse struct {
	Checkpoints []*models.Checkpoint `json:"checkpoints"`
}

// ListCheckpointDatasourcesResponse wraps the datasources a checkpoint can run against.
type ListCheckpointDatasourcesResponse struct {
	CheckpointID int64                `json:"checkpoint_id"`
	Datasources  []*models.Datasource `json:"datasources"`
}

// RunRequest is the body of run-test and run-detail. datasource_id may be a
// number or a numeric string.
type RunRequest struct {
	DatasourceID jsonutil.FlexibleID `json:"datasource_id"`
}

// CheckpointsHandler handles checkpoint listing and runs.
type CheckpointsHandler struct {
	checkpointService services.CheckpointService
	logger            *zap.Logger
}

// NewCheckpointsHandler creates a new checkpoints handler.
func NewCheckpointsHandler(checkpointService services.CheckpointService, logger *zap.Logger) *CheckpointsHandler {
	return &CheckpointsHandler{
		checkpointService: checkpointService,
		logger:            logger,
	}
}

// RegisterRoutes registers the checkpoints handler's routes on the given mux.
func (h *CheckpointsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/checkpoints", h.List)
	mux.HandleFunc("GET /api/checkpoints/{id}", h.Get)
	mux.HandleFunc("GET /api/checkpoints/{id}/datasources", h.ListDatasources)
	mux.HandleFunc("POST /api/checkpoints/{id}/run-test", h.RunTest)
	mux.HandleFunc("POST /api/checkpoints/{id}/run-detail", h.RunDetail)
}

// List handles GET /api/checkpoints
func (h *CheckpointsHandler) List(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := h.checkpointService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list checkpoints", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "internal_error", "Failed to list checkpoints")
		return
	}

	if checkpoints == nil {
		checkpoints = []*models.Checkpoint{}
	}
	respondData(w, h.logger, ListCheckpointsResponse{Checkpoints: checkpoints})
}

// Get handles GET /api/checkpoints/{id}
func (h *CheckpointsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseCheckpointID(w, r, h.logger)
	if !ok {
		return
	}

	cp, err := h.checkpointService.Get(r.Context(), id)
	if err != nil {
		h.lookupFailed(w, err, "Failed to get checkpoint", id)
		return
	}
	respondData(w, h.logger, cp)
}

// ListDatasources handles GET /api/checkpoints/{id}/datasources
// Returns the datasources whose engine matches the checkpoint.
func (h *CheckpointsHandler) ListDatasources(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseCheckpointID(w, r, h.logger)
	if !ok {
		return
	}

	datasources, err := h.checkpointService.ListDatasources(r.Context(), id)
	if err != nil {
		h.lookupFailed(w, err, "Failed to list checkpoint datasources", id)
		return
	}

	if datasources == nil {
		datasources = []*models.Datasource{}
	}
	respondData(w, h.logger, ListCheckpointDatasourcesResponse{CheckpointID: id, Datasources: datasources})
}

// RunTest handles POST /api/checkpoints/{id}/run-test
// A run that ends in ERROR is still a 200; only lookups fail the request.
func (h *CheckpointsHandler) RunTest(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.checkpointService.RunTest)
}

// RunDetail handles POST /api/checkpoints/{id}/run-detail
func (h *CheckpointsHandler) RunDetail(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.checkpointService.RunDetail)
}

type runFunc func(ctx context.Context, checkpointID, datasourceID int64) (*models.RunResult, error)

func (h *CheckpointsHandler) run(w http.ResponseWriter, r *http.Request, run runFunc) {
	id, ok := ParseCheckpointID(w, r, h.logger)
	if !ok {
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.DatasourceID <= 0 {
		respondError(w, h.logger, http.StatusBadRequest, "missing_datasource_id", "datasource_id is required")
		return
	}

	result, err := run(r.Context(), id, int64(req.DatasourceID))
	if err != nil {
		h.lookupFailed(w, err, "Failed to run checkpoint", id)
		return
	}
	respondData(w, h.logger, result)
}

// lookupFailed maps service errors to responses.
func (h *CheckpointsHandler) lookupFailed(w http.ResponseWriter, err error, logMessage string, checkpointID int64) {
	switch {
	case errors.Is(err, apperrors.ErrCheckpointNotFound):
		respondError(w, h.logger, http.StatusNotFound, "checkpoint_not_found", "Checkpoint not found")
	case errors.Is(err, apperrors.ErrDatasourceNotFound):
		respondError(w, h.logger, http.StatusNotFound, "datasource_not_found", "Datasource not found")
	default:
		h.logger.Error(logMessage, zap.Int64("checkpoint_id", checkpointID), zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "internal_error", logMessage)
	}
}

package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-checkpoint/pkg/services"
)

// DatasourcesHandler handles datasource connectivity checks.
// Responses use the {"ok": bool, "message": string} shape of services.CheckResult;
// a failed check answers 500.
type DatasourcesHandler struct {
	datasourceService services.DatasourceService
	logger            *zap.Logger
}

// NewDatasourcesHandler creates a new datasources handler.
func NewDatasourcesHandler(datasourceService services.DatasourceService, logger *zap.Logger) *DatasourcesHandler {
	return &DatasourcesHandler{
		datasourceService: datasourceService,
		logger:            logger,
	}
}

// RegisterRoutes registers the datasources handler's routes on the given mux.
func (h *DatasourcesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/datasources/{id}/check", h.Check)
	mux.HandleFunc("POST /api/datasources/{id}/test-port", h.TestPort)
}

// Check handles POST /api/datasources/{id}/check
// Logs in to the datasource and runs the engine probe query.
func (h *DatasourcesHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.datasourceService.Check(r.Context(), id)
	h.writeCheck(w, id, result, err)
}

// TestPort handles POST /api/datasources/{id}/test-port
// Opens a plain TCP connection to the datasource's host and port.
func (h *DatasourcesHandler) TestPort(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseDatasourceID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.datasourceService.TestPort(r.Context(), id)
	h.writeCheck(w, id, result, err)
}

func (h *DatasourcesHandler) writeCheck(w http.ResponseWriter, id int64, result *services.CheckResult, err error) {
	if err != nil {
		if errors.Is(err, apperrors.ErrDatasourceNotFound) {
			result = &services.CheckResult{Message: "Datasource not found."}
			if err := WriteJSON(w, http.StatusNotFound, result); err != nil {
				h.logger.Error("Failed to write response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Datasource check failed", zap.Int64("datasource_id", id), zap.Error(err))
		result = &services.CheckResult{Message: err.Error()}
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusInternalServerError
	}
	if err := WriteJSON(w, status, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

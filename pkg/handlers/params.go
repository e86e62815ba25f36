package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseCheckpointID extracts the checkpoint ID from the request path.
// On failure it writes a 400 response and returns false.
// Expects path parameter: id
func ParseCheckpointID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parseID(w, r, "id", "invalid_checkpoint_id", "Invalid checkpoint ID", logger)
}

// ParseDatasourceID extracts the datasource ID from the request path.
// On failure it writes a 400 response and returns false.
// Expects path parameter: id
func ParseDatasourceID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	return parseID(w, r, "id", "invalid_datasource_id", "Invalid datasource ID", logger)
}

// parseID accepts positive decimal integers only.
func parseID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(pathParam), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, logger, http.StatusBadRequest, errorCode, errorMessage)
		return 0, false
	}
	return id, true
}

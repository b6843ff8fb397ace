package handlers

import (
	"net/http"

	"github.com/upb/recipe-rag/services"
	"github.com/upb/recipe-rag/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Errors that are not domain errors are infrastructure faults and become 500.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch {
	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, err.Error(), details)

	case services.IsUnavailableError(err):
		writeErr = utils.WriteServiceUnavailable(w, err.Error(), details)

	case services.IsExternalError(err):
		logger.Warn("external dependency unreachable", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, err.Error(), details)

	case services.IsInternalError(err), services.IsIngestionError(err):
		logger.Error("request failed", zap.Error(err))
		writeErr = utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
			Details: details,
		})

	default:
		logger.Error("unhandled error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

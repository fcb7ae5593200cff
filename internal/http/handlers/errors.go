package handlers

import (
	"net/http"

	"citibike/internal/domain"
	"citibike/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsSchemaMismatch(err):
		respondError(c, http.StatusUnprocessableEntity, "schema_mismatch", err.Error(), nil)
	case domain.IsConstraintViolation(err):
		respondError(c, http.StatusConflict, "constraint_violation", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsSourceUnavailable(err):
		respondError(c, http.StatusBadGateway, "source_unavailable", err.Error(), nil)
	case domain.IsConnection(err):
		respondError(c, http.StatusServiceUnavailable, "connection_failure", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

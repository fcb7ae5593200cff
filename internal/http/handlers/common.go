package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"citibike/internal/domain"

	"github.com/gin-gonic/gin"
)

const maxLimit = 500

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload", err.Error())
		return false
	}
	return true
}

// queryLimit parses ?limit=, defaulting to def and capped at maxLimit.
func queryLimit(c *gin.Context, def int) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domain.ValidationError{Field: "limit", Msg: "limit must be a positive integer"}
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

package handlers

import (
	"net/http"
	"strings"

	"citibike/internal/domain"
	"citibike/internal/http/middleware"
	"citibike/internal/services"
	"citibike/internal/utils"

	"github.com/gin-gonic/gin"
)

type batchRequest struct {
	Month      int    `json:"month"`
	Table      string `json:"table"`
	InsertOnly bool   `json:"insert_only"`
}

// POST /api/batches
// Replaces the rows of table with month (skipped when month is 0) and folds
// the table into most_used_routes. The response carries both summaries.
func (a API) CreateBatch(c *gin.Context) {
	var req batchRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Month < 0 || req.Month > 12 {
		RespondDomainError(c, domain.ValidationError{Field: "month", Msg: "month must be between 1 and 12, or 0 to skip loading"})
		return
	}
	table := strings.TrimSpace(req.Table)
	if table == "" {
		table = a.StagingTable
	}
	if table == "" {
		RespondDomainError(c, domain.ValidationError{Field: "table", Msg: "table is required"})
		return
	}

	ctx := utils.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))

	var load *services.LoadResult
	if req.Month > 0 {
		res, err := a.Loader.ReplaceMonth(ctx, req.Month, table)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		load = &res
	}

	batch, err := a.Runner.RunBatch(ctx, table, req.InsertOnly)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"load": load, "batch": batch})
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"citibike/internal/http/middleware"
	"citibike/internal/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/routes?limit=&station=
func (a API) TopRoutes(c *gin.Context) {
	limit, err := queryLimit(c, 20)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	station := strings.TrimSpace(c.Query("station"))

	routes, err := a.Routes.Top(c.Request.Context(), limit, station)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes, "limit": limit, "station": station})
}

// GET /api/routes/report?limit=&station=
func (a API) TopRoutesReport(c *gin.Context) {
	limit, err := queryLimit(c, 50)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	station := strings.TrimSpace(c.Query("station"))

	ctx := utils.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
	pdf, filename, err := a.Reports.TopRoutesPDF(ctx, limit, station)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

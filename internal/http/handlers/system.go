package handlers

import (
	"net/http"
	"sync"

	"citibike/internal/domain"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (/api/endpoints).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "citibike routes api running"})
}

func (a API) DBCheck(c *gin.Context) {
	n, err := a.Routes.Count(c.Request.Context())
	if err != nil {
		RespondDomainError(c, domain.ConnectionError{Target: "database", Err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database OK", "routes_in_db": n})
}

func Endpoints(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "router not ready"})
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": out})
}

package api

import (
	"log"
	stdhttp "net/http"

	h "citibike/internal/http/handlers"
	"citibike/internal/http/middleware"
	"citibike/internal/metrics"

	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	CORSOrigins []string
}

func NewRouter(a h.API, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(opts.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", a.DBCheck)
		api.GET("/endpoints", h.Endpoints)

		api.POST("/auth/login", a.Login)

		routes := api.Group("/routes")
		routes.GET("", a.TopRoutes)
		routes.GET("/report", a.TopRoutesReport)

		batches := api.Group("/batches", middleware.AuthRequired(a.Admin.JWTSecret), middleware.RequireRoles("admin"))
		batches.POST("", a.CreateBatch)
	}

	h.SetRouter(r)
	return r
}

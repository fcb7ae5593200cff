package middleware

import (
	"fmt"
	"time"

	"citibike/internal/metrics"
	"citibike/internal/utils"

	"github.com/gin-gonic/gin"
)

// Logger writes one access line per request through utils.LogEvent and
// counts it by matched route.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%dxx", status/100)).Inc()

		msg := fmt.Sprintf("method=%s route=%s status=%d latency=%s ip=%s",
			c.Request.Method, route, status, time.Since(start).Round(time.Microsecond), c.ClientIP())
		if len(c.Errors) > 0 {
			msg += " errors=" + c.Errors.String()
		}
		utils.LogEvent(GetRequestID(c), "http", "request", msg)
	}
}

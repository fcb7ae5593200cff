package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"citibike/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoggerCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/api/routes/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	ok := metrics.HTTPRequests.WithLabelValues("/api/routes/:id", "4xx")
	missing := metrics.HTTPRequests.WithLabelValues("unmatched", "4xx")
	before, beforeMissing := testutil.ToFloat64(ok), testutil.ToFloat64(missing)

	for _, path := range []string{"/api/routes/1", "/api/routes/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(ok) - before; got != 2 {
		t.Fatalf("expected 2 matched requests, got %v", got)
	}
	if got := testutil.ToFloat64(missing) - beforeMissing; got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}
}

package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records request latency per route template. Probe endpoints are
// skipped and unknown paths share one label so scans cannot inflate series.
func Metrics(metricsSvc *service.MetricsService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

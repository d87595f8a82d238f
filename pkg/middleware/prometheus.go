package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/pinboard/pkg/metrics"
)

// PrometheusMiddleware 记录请求数、耗时和处理中的请求数. 按路由模板统计，避免 query 造成标签膨胀.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.RequestCounter.WithLabelValues(c.Request.Method, endpoint).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

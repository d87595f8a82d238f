// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集应用和系统指标.
//
// Example:
//
//	import "github.com/yeisme/pinboard/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.RequestCounter.WithLabelValues("GET", "/api/v1/pins").Inc()
//	metrics.PinOperations.WithLabelValues("write", "s3").Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 注册到 http.DefaultServeMux
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/yeisme/pinboard/pkg/configs"
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// PinOperations board 操作计数，按操作和协议区分.
	PinOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_operations_total",
			Help: "Total number of pin board operations",
		},
		[]string{"op", "protocol"},
	)

	// PinOperationErrors 失败的 board 操作，按错误分类区分.
	PinOperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pin_operation_errors_total",
			Help: "Total number of failed pin board operations",
		},
		[]string{"op", "kind"},
	)

	// CachePrunedBytes 缓存清理释放的字节数.
	CachePrunedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_pruned_bytes_total",
			Help: "Total bytes removed from the local pin cache",
		},
	)

	registry     = prometheus.NewRegistry()
	registerOnce sync.Once
)

// InitMetrics 注册指标，Labels 作为常量标签. 多次调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	registerOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)

		if config.RuntimeMetrics {
			if err = reg.Register(collectors.NewGoCollector()); err != nil {
				return
			}

			if err = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
				return
			}
		}

		for _, c := range []prometheus.Collector{
			RequestCounter, RequestDuration, ActiveConnections,
			PinOperations, PinOperationErrors, CachePrunedBytes,
		} {
			if err = reg.Register(c); err != nil {
				return
			}
		}
	})

	return err
}

// StartMetricsServer 在 engine 上挂载 metrics 和可选的 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// Gather 当前注册表中的指标.
func Gather() ([]*dto.MetricFamily, error) {
	return registry.Gather()
}

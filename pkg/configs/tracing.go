package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTracingEndpoint = "http://localhost:4318"
	DefaultMaxBatchSize    = 512
	DefaultMaxQueueSize    = 2048
)

// TracingConfig OpenTelemetry 配置. 每个 board 操作一个 span，serve 模式下挂在请求 span 下.
// Endpoint 对三种导出器都是完整 URL.
type TracingConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	ServiceName    string            `mapstructure:"service_name"`
	ServiceVersion string            `mapstructure:"service_version"`
	ExporterType   string            `mapstructure:"exporter_type"   rule:"oneof=otlp-http otlp-grpc zipkin"`
	Endpoint       string            `mapstructure:"endpoint"        rule:"required_if=Enabled true,omitempty,url"`
	SampleRate     float64           `mapstructure:"sample_rate"     rule:"min=0,max=1"`
	BatchTimeout   time.Duration     `mapstructure:"batch_timeout"`
	MaxBatchSize   int               `mapstructure:"max_batch_size"  rule:"gte=0"`
	MaxQueueSize   int               `mapstructure:"max_queue_size"  rule:"gte=0"`
	ResourceLabels map[string]string `mapstructure:"resource_labels"` // 附加的 resource 属性
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "pinboard")
	v.SetDefault("tracing.service_version", AppVersion)
	v.SetDefault("tracing.exporter_type", "otlp-http")
	v.SetDefault("tracing.endpoint", DefaultTracingEndpoint)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", "5s")
	v.SetDefault("tracing.max_batch_size", DefaultMaxBatchSize)
	v.SetDefault("tracing.max_queue_size", DefaultMaxQueueSize)
	v.SetDefault("tracing.resource_labels", map[string]string{
		"deployment.environment": "local",
	})
}

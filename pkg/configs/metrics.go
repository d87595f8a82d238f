package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Prometheus 指标配置. 指标挂在 API 服务的 Path 上.
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	Path           string            `mapstructure:"path"            rule:"required_if=Enabled true,omitempty,startswith=/"`
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"` // Go 运行时和进程指标
	Pprof          bool              `mapstructure:"pprof"`           // 同时开放 /debug/pprof
	Labels         map[string]string `mapstructure:"labels"`          // 附加到所有指标的常量标签
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.labels", map[string]string{
		"service": "pinboard",
	})
}

package configs

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultHTTPTimeout URL board 请求超时.
const DefaultHTTPTimeout = 60 * time.Second

// HTTPConfig URL board 使用的 HTTP 客户端配置.
type HTTPConfig struct {
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
}

// setDefaults 设置 HTTP 配置的默认值.
func (c *HTTPConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", DefaultHTTPTimeout)
	v.SetDefault("http.headers", map[string]string{})
}

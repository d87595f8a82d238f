package configs

import (
	"github.com/spf13/viper"
)

// ConnectConfig Connect 内容服务配置.
// 具体的 API 客户端由调用方提供，这里只保存连接信息.
type ConnectConfig struct {
	ServerURL string `mapstructure:"server_url" rule:"omitempty,url"`
	APIKey    string `mapstructure:"api_key"`
}

// setDefaults 设置 Connect 配置的默认值.
func (c *ConnectConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("connect.server_url", "")
	v.SetDefault("connect.api_key", "")
}

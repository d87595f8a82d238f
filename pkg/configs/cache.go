package configs

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultCachePruneDays = 30           // 缓存保留天数
	DefaultCachePruneCron = "30 3 * * *" // serve 模式下每天 03:30 清理缓存
)

type (
	// CacheConfig 本地缓存配置.
	CacheConfig struct {
		Dir       string `mapstructure:"dir"`
		PruneDays int    `mapstructure:"prune_days" rule:"min=1"`
		PruneCron string `mapstructure:"prune_cron" rule:"required,cron"`
	}
)

// DefaultCacheDir 返回用户缓存目录下的 pinboard 目录.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pinboard")
	}

	return filepath.Join(os.TempDir(), "pinboard-cache")
}

// setDefaults 设置缓存配置的默认值.
func (c *CacheConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("cache.dir", DefaultCacheDir())
	v.SetDefault("cache.prune_days", DefaultCachePruneDays)
	v.SetDefault("cache.prune_cron", DefaultCachePruneCron)
}

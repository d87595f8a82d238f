package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console" // console 人类可读，json 每行一个事件
	DefaultLogEnableFile = false
	DefaultLogFilePath   = "logs/pinboard.log"
	DefaultLogMaxSize    = 100 // MB
	DefaultLogMaxBackups = 7
	DefaultLogMaxAge     = 28 // 天
	DefaultLogCompress   = true
)

// LogConfig 日志配置. 控制台输出到 stderr，文件输出总是 json.
type LogConfig struct {
	Level      string `mapstructure:"level"        rule:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format     string `mapstructure:"format"       rule:"omitempty,oneof=console json"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"    rule:"required_if=EnableFile true"`
	MaxSize    int    `mapstructure:"max_size_mb"  rule:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups"  rule:"gte=0"`
	MaxAge     int    `mapstructure:"max_age_days" rule:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
}

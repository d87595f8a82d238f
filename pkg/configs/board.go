package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultBoardProtocol  = "file" // 默认使用本地磁盘
	DefaultBoardPath      = "pins" // 默认 board 根目录
	DefaultBoardVersioned = true   // 默认为版本化 board
	DefaultBoardCache     = true   // 远端 board 默认启用本地缓存
)

type (
	// BoardConfig 默认 board 配置.
	// Protocol 为 url 时使用 PinPaths 中的 名称->URL 映射，此时 Path 是可选的公共前缀.
	BoardConfig struct {
		Protocol        string            `mapstructure:"protocol"          rule:"oneof=file local memory s3 gcs gs http https url rsc"`
		Path            string            `mapstructure:"path"`
		Versioned       bool              `mapstructure:"versioned"`
		AllowUnsafeRead bool              `mapstructure:"allow_unsafe_read"`
		Cache           bool              `mapstructure:"cache"`
		PinPaths        map[string]string `mapstructure:"pin_paths"`
	}
)

// setDefaults 设置 board 配置的默认值.
func (b *BoardConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("board.protocol", DefaultBoardProtocol)
	v.SetDefault("board.path", DefaultBoardPath)
	v.SetDefault("board.versioned", DefaultBoardVersioned)
	v.SetDefault("board.allow_unsafe_read", false)
	v.SetDefault("board.cache", DefaultBoardCache)
	v.SetDefault("board.pin_paths", map[string]string{})
}

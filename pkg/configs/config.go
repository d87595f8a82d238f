// Package configs 管理应用程序配置，包括 board、缓存、各存储后端以及服务端的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "github.com/yeisme/pinboard/pkg/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Board.Protocol, config.Board.Path)
//
// Example accessing cache config:
//
//	config := configs.GetConfig()
//	dir := config.Cache.Dir
//	fmt.Println("Cache dir:", dir)
//
// Example accessing S3 config:
//
//	config := configs.GetConfig()
//	s3Config := config.S3
//	endpoint := s3Config.GetEndpointURL()
//	fmt.Println("S3 Endpoint:", endpoint)
//
// 环境变量使用 PINBOARD 前缀，层级用下划线分隔，例如 PINBOARD_CACHE_DIR、PINBOARD_BOARD_PATH.
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/pinboard/pkg/rule"
)

// AppVersion 应用版本.
const AppVersion = "0.3.0"

// EnvPrefix 环境变量前缀.
const EnvPrefix = "PINBOARD"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Board   BoardConfig   `mapstructure:"board"`   // BoardConfig 默认 board
		Cache   CacheConfig   `mapstructure:"cache"`   // CacheConfig 本地缓存
		S3      S3Config      `mapstructure:"s3"`      // S3Config 对象存储配置
		GCS     GCSConfig     `mapstructure:"gcs"`     // GCSConfig Google Cloud Storage 配置
		HTTP    HTTPConfig    `mapstructure:"http"`    // HTTPConfig URL board 的 HTTP 客户端
		Connect ConnectConfig `mapstructure:"connect"` // ConnectConfig Connect 服务
		Server  ServerConfig  `mapstructure:"server"`  // ServerConfig 服务器配置，端口、调试模式等
		// RateLimit serve 模式下 API 限流
		RateLimit RateLimitConfig `mapstructure:"rate_limit"`
		// CircuitBreaker 远端存储熔断
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
		Log     LogConfig     `mapstructure:"log"`     // LogConfig 日志相关配置
		Metrics MetricsConfig `mapstructure:"metrics"` // MetricsConfig 监控指标
		Tracing TracingConfig `mapstructure:"tracing"` // TracingConfig 链路追踪
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时只使用默认值和环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.SetEnvPrefix(EnvPrefix)
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	appViper.AutomaticEnv()

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 解析到全局配置
	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&globalConfig); err != nil {
		return err
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// Validate 按 rule 标签校验配置.
func Validate(cfg *AppConfig) error {
	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var boardConfig BoardConfig

	var cacheConfig CacheConfig

	var s3Config S3Config

	var gcsConfig GCSConfig

	var httpConfig HTTPConfig

	var connectConfig ConnectConfig

	var serverConfig ServerConfig

	var rateLimitConfig RateLimitConfig

	var breakerConfig CircuitBreakerConfig

	var logConfig LogConfig

	var metricsConfig MetricsConfig

	var tracingConfig TracingConfig

	boardConfig.setDefaults(v)
	cacheConfig.setDefaults(v)
	s3Config.setDefaults(v)
	gcsConfig.setDefaults(v)
	httpConfig.setDefaults(v)
	connectConfig.setDefaults(v)
	serverConfig.setDefaults(v)
	rateLimitConfig.setDefaults(v)
	breakerConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload || v.ConfigFileUsed() == "" {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		var next AppConfig
		if err := v.Unmarshal(&next); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := Validate(&next); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		globalConfig = next
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}

package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultGCSEndpoint         = "https://storage.googleapis.com" // GCS XML 接口
	DefaultGCSRegion           = "auto"
	DefaultGCSRetryMaxAttempts = 3
)

// GCSConfig Google Cloud Storage 配置，使用 HMAC 密钥访问 S3 兼容接口.
type GCSConfig struct {
	Endpoint         string `mapstructure:"endpoint"           rule:"required,url"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	Region           string `mapstructure:"region"`
	RetryMaxAttempts int    `mapstructure:"retry_max_attempts" rule:"min=0,max=10"`
	PutConcurrency   int    `mapstructure:"put_concurrency"    rule:"min=0,max=64"`
}

// setDefaults 设置 GCS 配置的默认值.
func (c *GCSConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("gcs.endpoint", DefaultGCSEndpoint)
	v.SetDefault("gcs.access_key_id", "")
	v.SetDefault("gcs.secret_access_key", "")
	v.SetDefault("gcs.region", DefaultGCSRegion)
	v.SetDefault("gcs.retry_max_attempts", DefaultGCSRetryMaxAttempts)
	v.SetDefault("gcs.put_concurrency", DefaultS3PutConcurrency)
}

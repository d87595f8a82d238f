package configs

import (
	"fmt"
	"os"
)

// 行为开关的环境变量，值只能是 "0" 或 "1".
const (
	EnvAllowUnsafeRead       = EnvPrefix + "_ALLOW_UNSAFE_READ"
	EnvAllowConnectShortName = EnvPrefix + "_ALLOW_CONNECT_SHORT_NAME"
	EnvCacheDir              = EnvPrefix + "_CACHE_DIR"
)

// EnvFlag 读取严格的布尔环境变量. 未设置时 set 为 false.
func EnvFlag(name string) (value, set bool, err error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return false, false, nil
	}

	switch raw {
	case "0":
		return false, true, nil
	case "1":
		return true, true, nil
	default:
		return false, true, fmt.Errorf("environment variable %s must be '0' or '1', got %q", name, raw)
	}
}

// AllowUnsafeRead 是否允许读取可执行代码的序列化格式.
func AllowUnsafeRead() (bool, error) {
	v, _, err := EnvFlag(EnvAllowUnsafeRead)
	return v, err
}

// AllowConnectShortName 是否允许 Connect pin 使用不带用户名的短名称.
func AllowConnectShortName() (bool, error) {
	v, _, err := EnvFlag(EnvAllowConnectShortName)
	return v, err
}

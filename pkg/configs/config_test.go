package configs

import (
	"os"
	"path/filepath"
	"testing"
)

// TestInitConfigDefaults 测试没有配置文件时使用默认值.
func TestInitConfigDefaults(t *testing.T) {
	if err := InitConfig(t.TempDir()); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := GetConfig()

	if cfg.Board.Protocol != DefaultBoardProtocol {
		t.Errorf("board.protocol = %q", cfg.Board.Protocol)
	}

	if cfg.Cache.PruneDays != DefaultCachePruneDays {
		t.Errorf("cache.prune_days = %d", cfg.Cache.PruneDays)
	}

	if !cfg.CircuitBreaker.Enabled {
		t.Error("circuit breaker should be enabled by default")
	}
}

// TestInitConfigFileAndEnv 测试配置文件和环境变量覆盖.
func TestInitConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`board:
  protocol: url
  path: https://example.com/pins/
  pin_paths:
    cars: cars/20240101T000000Z-abcde/
server:
  port: 9090
`)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PINBOARD_CACHE_PRUNE_DAYS", "7")

	if err := InitConfig(dir); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := GetConfig()

	if cfg.Board.Protocol != "url" || cfg.Server.Port != 9090 {
		t.Errorf("unexpected config: %+v %+v", cfg.Board, cfg.Server)
	}

	if got := cfg.Board.PinPaths["cars"]; got != "cars/20240101T000000Z-abcde/" {
		t.Errorf("pin_paths[cars] = %q", got)
	}

	if cfg.Cache.PruneDays != 7 {
		t.Errorf("cache.prune_days = %d, want env override 7", cfg.Cache.PruneDays)
	}
}

func TestInitConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("board:\n  protocol: ftp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := InitConfig(dir); err == nil {
		t.Fatal("expected validation error for protocol ftp")
	}
}

func TestEnvFlag(t *testing.T) {
	t.Setenv(EnvAllowUnsafeRead, "1")

	if v, err := AllowUnsafeRead(); err != nil || !v {
		t.Errorf("AllowUnsafeRead() = %v, %v", v, err)
	}

	t.Setenv(EnvAllowUnsafeRead, "yes")

	if _, err := AllowUnsafeRead(); err == nil {
		t.Error("expected error for non 0/1 value")
	}
}

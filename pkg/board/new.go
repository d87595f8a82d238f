package board

import (
	"context"
	"path/filepath"

	"github.com/yeisme/pinboard/pkg/cache"
	"github.com/yeisme/pinboard/pkg/configs"
	_ "github.com/yeisme/pinboard/pkg/internal/storage/gcs"    // 注册 gcs 后端
	_ "github.com/yeisme/pinboard/pkg/internal/storage/httpfs" // 注册 http(s) 后端
	_ "github.com/yeisme/pinboard/pkg/internal/storage/s3"     // 注册 s3 后端
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/storage"
)

// normalizeProtocol 合并协议别名.
func normalizeProtocol(p string) string {
	switch p {
	case "local":
		return string(storage.TypeFile)
	case "gs":
		return string(storage.TypeGCS)
	case "http", "https":
		return "url"
	}

	return p
}

// FromConfig 按配置创建 board：选择存储后端，远端存储依次包上熔断和缓存，并把缓存 touch 接到元数据读取上.
func FromConfig(ctx context.Context, cfg *configs.AppConfig, reporter *log.Reporter) (Board, error) {
	bc := cfg.Board

	opts := []Option{WithVersioned(bc.Versioned), WithReporter(reporter)}
	if bc.AllowUnsafeRead {
		opts = append(opts, WithAllowUnsafeRead(true))
	}

	cacheRoot := cache.DefaultDir(cfg.Cache.Dir)
	proto := normalizeProtocol(bc.Protocol)

	switch proto {
	case string(storage.TypeFile), string(storage.TypeMemory):
		fsys, err := storage.New(ctx, storage.Type(proto), nil)
		if err != nil {
			return nil, err
		}

		return New(bc.Path, fsys, opts...), nil
	case string(storage.TypeS3), string(storage.TypeGCS):
		var backendCfg any = &cfg.S3
		if proto == string(storage.TypeGCS) {
			backendCfg = &cfg.GCS
		}

		fsys, err := storage.New(ctx, storage.Type(proto), backendCfg)
		if err != nil {
			return nil, err
		}

		fsys = storage.NewBreaker(fsys, cfg.CircuitBreaker)

		if bc.Cache {
			c := cache.New(fsys, filepath.Join(cacheRoot, cache.PrefixCache(proto, bc.Path)), cache.SameNameMapper{Prefix: bc.Path})
			fsys = c
			opts = append(opts, WithMetaReadHook(c.TouchAccessTime))
		}

		return New(bc.Path, fsys, opts...), nil
	case "url":
		fsys, err := storage.New(ctx, storage.TypeHTTPS, &cfg.HTTP)
		if err != nil {
			return nil, err
		}

		fsys = storage.NewBreaker(fsys, cfg.CircuitBreaker)

		if bc.Cache {
			fsys = cache.New(fsys, filepath.Join(cacheRoot, cache.PrefixCache("http", bc.Path)),
				cache.URLMapper{Protocol: "http"}, cache.WithTouchOnOpen())
		}

		return NewManual(bc.Path, fsys, bc.PinPaths, opts...), nil
	case "rsc":
		return nil, pinerr.New(pinerr.BackendCapability,
			"connect boards need a ConnectAPI client; construct them with board.NewConnect")
	}

	return nil, pinerr.New(pinerr.Usage, "unsupported board protocol %q", bc.Protocol)
}

// NewConnectCached 创建带缓存的 Connect board，每个服务器地址使用独立的缓存目录.
func NewConnectCached(api ConnectAPI, fsys storage.FileSystem, cacheRoot string, opts ...Option) *Connect {
	dir := filepath.Join(cache.DefaultDir(cacheRoot), cache.PrefixCache("rsc", api.ServerURL()))
	c := cache.New(fsys, dir, cache.ConnectMapper{})

	return NewConnect(api, c, append(opts, WithMetaReadHook(c.TouchAccessTime))...)
}

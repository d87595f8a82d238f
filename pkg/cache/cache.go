// Package cache 提供远端存储的本地只读缓存.
//
// FS 包装任意 storage.FileSystem：第一次 Open 时把远端文件完整下载到缓存目录，之后直接读本地副本.
// 缓存路径由 Mapper 决定，board 读取元数据后需要调用 TouchAccessTime 刷新访问时间，
// Pruner 依据 data.txt 的访问时间判断版本是否过期.
//
// 基本用法:
//
//	dir := filepath.Join(cacheRoot, cache.PrefixCache("s3", "bucket/pins"))
//	fsys := cache.New(remote, dir, cache.SameNameMapper{Prefix: "bucket/pins"})
//
//	rc, err := fsys.Open(ctx, "bucket/pins/t1/20240102T030405Z-1a2b3/data.txt")
//	...
//	_ = fsys.TouchAccessTime("bucket/pins/t1/20240102T030405Z-1a2b3/data.txt")
//
// 线程安全:
//
//	不加锁，依赖宿主文件系统；下载先写临时文件再 rename，读到的总是完整文件.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/storage"
)

// HashName 路径的 sha256 十六进制摘要.
func HashName(p string) string {
	sum := sha256.Sum256([]byte(p))
	return hex.EncodeToString(sum[:])
}

// PrefixCache 某个 board 的缓存子目录名: {protocol}_{sha256(boardPath)}.
func PrefixCache(protocol, boardPath string) string {
	return protocol + "_" + HashName(boardPath)
}

// FS 带本地缓存的文件系统.
type FS struct {
	remote      storage.FileSystem
	dir         string
	mapper      Mapper
	local       afero.Fs
	touchOnOpen bool
	now         func() time.Time
}

// Option 配置 FS.
type Option func(*FS)

// WithTouchOnOpen 每次 Open 都刷新访问时间（URL board 使用）.
func WithTouchOnOpen() Option {
	return func(f *FS) { f.touchOnOpen = true }
}

// WithClock 替换时间来源，便于测试.
func WithClock(now func() time.Time) Option {
	return func(f *FS) { f.now = now }
}

// New 创建缓存文件系统，dir 为该 board 的缓存目录.
func New(remote storage.FileSystem, dir string, mapper Mapper, opts ...Option) *FS {
	f := &FS{
		remote: remote,
		dir:    dir,
		mapper: mapper,
		local:  afero.NewOsFs(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Remote 返回被包装的远端文件系统.
func (f *FS) Remote() storage.FileSystem { return f.remote }

// Unwrap 同 Remote.
func (f *FS) Unwrap() storage.FileSystem { return f.remote }

// Dir 缓存目录.
func (f *FS) Dir() string { return f.dir }

func (f *FS) Protocol() []string { return f.remote.Protocol() }

func (f *FS) Ls(ctx context.Context, p string, detail bool) ([]storage.Entry, error) {
	return f.remote.Ls(ctx, p, detail)
}

func (f *FS) Put(ctx context.Context, localDir, remotePath string, recursive bool) (string, error) {
	return f.remote.Put(ctx, localDir, remotePath, recursive)
}

func (f *FS) Exists(ctx context.Context, p string) (bool, error) {
	return f.remote.Exists(ctx, p)
}

func (f *FS) Mkdir(ctx context.Context, p string) error {
	return f.remote.Mkdir(ctx, p)
}

func (f *FS) Rm(ctx context.Context, p string, recursive bool) error {
	return f.remote.Rm(ctx, p, recursive)
}

func (f *FS) Info(ctx context.Context, p string) (storage.Entry, error) {
	return f.remote.Info(ctx, p)
}

// Open 命中缓存时读本地文件，否则先下载.
func (f *FS) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	local, err := f.ResolveLocalPath(p)
	if err != nil {
		return nil, err
	}

	if ok, _ := afero.Exists(f.local, local); !ok {
		if err := f.download(ctx, p, local); err != nil {
			return nil, err
		}
	}

	if f.touchOnOpen {
		if err := f.touch(local); err != nil {
			return nil, err
		}
	}

	return f.local.Open(local)
}

func (f *FS) download(ctx context.Context, remote, local string) error {
	rc, err := f.remote.Open(ctx, remote)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := f.local.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := afero.TempFile(f.local, filepath.Dir(local), ".download-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		_ = f.local.Remove(tmp.Name())

		return fmt.Errorf("download %s: %w", remote, err)
	}

	if err := tmp.Close(); err != nil {
		_ = f.local.Remove(tmp.Name())
		return err
	}

	if err := f.local.Rename(tmp.Name(), local); err != nil {
		_ = f.local.Remove(tmp.Name())
		return fmt.Errorf("commit cache file: %w", err)
	}

	log.Logger().Debug().Str("path", remote).Str("cache_file", local).Msg("cached remote file")

	return nil
}

// ResolveLocalPath 远端路径对应的缓存路径，与文件是否已缓存无关.
func (f *FS) ResolveLocalPath(p string) (string, error) {
	key, err := f.mapper.Key(p)
	if err != nil {
		return "", err
	}

	return filepath.Join(f.dir, filepath.FromSlash(key)), nil
}

// LocalPath 已缓存时返回本地路径.
func (f *FS) LocalPath(p string) (string, bool) {
	local, err := f.ResolveLocalPath(p)
	if err != nil {
		return "", false
	}

	if ok, _ := afero.Exists(f.local, local); !ok {
		return "", false
	}

	return local, true
}

// TouchAccessTime 把缓存文件的访问时间设为当前时间，修改时间不变.
func (f *FS) TouchAccessTime(p string) error {
	local, err := f.ResolveLocalPath(p)
	if err != nil {
		return err
	}

	return f.touch(local)
}

func (f *FS) touch(local string) error {
	info, err := f.local.Stat(local)
	if err != nil {
		return fmt.Errorf("touch cache file: %w", err)
	}

	if err := f.local.Chtimes(local, f.now(), info.ModTime()); err != nil {
		return fmt.Errorf("touch cache file: %w", err)
	}

	return nil
}

// DefaultDir 缓存根目录：优先使用 PINBOARD_CACHE_DIR.
func DefaultDir(configured string) string {
	if dir := os.Getenv(configs.EnvCacheDir); dir != "" {
		return dir
	}

	return configured
}

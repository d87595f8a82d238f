// Package storage 定义 board 所需的最小存储能力集合，以及后端工厂注册表.
//
// 后端在 init() 中调用 RegisterFactory 注册，调用方按协议名创建:
//
//	fsys, err := storage.New(ctx, "s3", &cfg.S3)
//	if err != nil {
//		return err
//	}
//	entries, err := fsys.Ls(ctx, "bucket/pins", false)
//
// 路径不存在时，各后端返回的错误都满足 errors.Is(err, fs.ErrNotExist).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"time"
)

// Entry 列表或 Info 返回的条目. Name 为完整路径.
type Entry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// FileSystem 存储后端必须提供的能力.
type FileSystem interface {
	// Protocol 协议名及其别名，第一个为主名称.
	Protocol() []string
	// Ls 列出目录下的直接子项；detail 为 false 时只保证 Name 有值.
	Ls(ctx context.Context, path string, detail bool) ([]Entry, error)
	// Open 打开文件读取.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Put 把本地目录的内容上传到远端路径下，返回实际写入的远端路径.
	Put(ctx context.Context, localDir, remotePath string, recursive bool) (string, error)
	// Exists 判断路径是否存在.
	Exists(ctx context.Context, path string) (bool, error)
	// Mkdir 创建目录，已存在时不报错.
	Mkdir(ctx context.Context, path string) error
	// Rm 删除路径，目录需要 recursive.
	Rm(ctx context.Context, path string, recursive bool) error
	// Info 获取单个路径的信息.
	Info(ctx context.Context, path string) (Entry, error)
}

// LocalPather 可以直接给出本地路径的后端（本地磁盘、缓存）.
type LocalPather interface {
	LocalPath(path string) (string, bool)
}

// Type 后端协议名.
type Type string

const (
	TypeFile   Type = "file"
	TypeMemory Type = "memory"
	TypeS3     Type = "s3"
	TypeGCS    Type = "gcs"
	TypeHTTP   Type = "http"
	TypeHTTPS  Type = "https"
)

// Factory 创建后端的工厂函数.
type Factory func(ctx context.Context, config any) (FileSystem, error)

var factories = make(map[Type]Factory)

// RegisterFactory 注册后端工厂.
func RegisterFactory(t Type, factory Factory) {
	factories[t] = factory
}

// RegisteredTypes 返回已注册的协议（排序后）.
func RegisteredTypes() []Type {
	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New 按协议创建后端.
func New(ctx context.Context, t Type, config any) (FileSystem, error) {
	factory, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("unsupported storage protocol: %s", t)
	}

	return factory(ctx, config)
}

// NotExist 构造满足 fs.ErrNotExist 的错误.
func NotExist(path string) error {
	return &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

// IsNotExist 判断错误是否表示路径不存在.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

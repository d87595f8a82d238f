// Package board 实现 pin board 协议：pin 名称到版本目录的映射、版本列举与清理、元数据读取以及写入流程.
//
// 三种实现共用同一套流程，只在路径构造和版本排序上不同：
//   - Base    本地磁盘和对象存储，路径为 {root}/{pin}/{version}，版本按字符串排序
//   - Connect Connect 服务，pin 名称为 user/content，版本为自增的 bundle id
//   - Manual  名称到 URL 的固定映射，不支持列举和删除版本
//
// 基本用法:
//
//	b := board.New("pins", storage.NewLocal(), board.WithReporter(log.Discard()))
//
//	rec, err := b.PinWrite(ctx, table, "t1", board.WriteOptions{Type: "csv"})
//	if err != nil {
//		return err
//	}
//	obj, err := b.PinRead(ctx, "t1", nil)
//
// 并发:
//
//	board 不加锁，同一 pin 的并发写入只依赖版本目录冲突检测.
package board

import (
	"context"
	"time"

	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/version"
)

// Board pin board 的全部操作. ver 为 nil 时表示最新版本.
type Board interface {
	PinExists(ctx context.Context, name string) (bool, error)
	PinVersions(ctx context.Context, name string, asc bool) ([]version.Version, error)
	PinMeta(ctx context.Context, name string, ver version.Version) (meta.Record, error)
	PinList(ctx context.Context) ([]string, error)
	PinRead(ctx context.Context, name string, ver version.Version) (any, error)
	PinWrite(ctx context.Context, obj any, name string, opts WriteOptions) (meta.Record, error)
	PinUpload(ctx context.Context, paths []string, name string, opts WriteOptions) (meta.Record, error)
	PinDownload(ctx context.Context, name string, ver version.Version) ([]string, error)
	PinVersionDelete(ctx context.Context, name string, ver version.Version) error
	PinVersionsPrune(ctx context.Context, name string, opts PruneOptions) error
	PinSearch(ctx context.Context, query string) ([]meta.Record, error)
	PinDelete(ctx context.Context, names ...string) error
}

// WriteOptions 写入参数. Type 必填.
type WriteOptions struct {
	Type        string
	Title       string
	Description string
	User        map[string]any
	Tags        []string
	// Versioned 为 nil 时：已有多个版本则视为版本化，否则使用 board 的默认值.
	Versioned *bool
	Created   *time.Time
	// SkipIdentical 内容哈希与最新版本相同时不写入，直接返回最新版本的元数据.
	SkipIdentical bool
	// AccessType 仅 Connect 使用.
	AccessType string
}

// PruneOptions N 和 Days 必须且只能指定一个.
type PruneOptions struct {
	N    int `json:"n"`
	Days int `json:"days"`
}

// MetaReadHook 每次成功读取元数据后调用，参数为元数据文件的存储路径.
// 带缓存的 board 用它刷新缓存文件的访问时间，缓存清理依赖这一点.
type MetaReadHook func(path string) error

// Option 配置 board.
type Option func(*Base)

// WithVersioned 设置 board 默认是否版本化.
func WithVersioned(versioned bool) Option {
	return func(b *Base) { b.versioned = versioned }
}

// WithAllowUnsafeRead 显式允许或禁止读取 joblib 等格式；不设置时读取环境变量.
func WithAllowUnsafeRead(allow bool) Option {
	return func(b *Base) { b.allowUnsafeRead = &allow }
}

// WithReporter 设置面向用户的提示输出.
func WithReporter(r *log.Reporter) Option {
	return func(b *Base) { b.reporter = r }
}

// WithMetaReadHook 设置读取元数据后的回调.
func WithMetaReadHook(hook MetaReadHook) Option {
	return func(b *Base) { b.onMetaRead = hook }
}

// WithClock 替换时间来源，影响按天清理版本.
func WithClock(now func() time.Time) Option {
	return func(b *Base) { b.now = now }
}

// Bool 返回指针，便于填写 WriteOptions.Versioned.
func Bool(v bool) *bool { return &v }

// Package pinerr 定义 pin board 各层共享的错误分类.
//
// 所有对外返回的领域错误都是 *Error，调用方通过 errors.Is 与哨兵值比较或用 KindOf 获取分类:
//
//	if errors.Is(err, pinerr.ErrNotFound) {
//		// pin 或版本不存在
//	}
package pinerr

import (
	"errors"
	"fmt"
)

// Kind 错误分类.
type Kind int

const (
	Other             Kind = iota // 未分类
	NotFound                      // pin 或版本不存在
	MalformedVersion              // 版本目录名无法解析
	Schema                        // 元数据 schema 不支持或缺少必填字段
	UnsupportedType               // 未知的内容类型
	UnsafeRead                    // 未显式允许就读取可执行代码的序列化格式
	VersionConflict               // 对已有多个版本的 pin 执行非版本化写入
	Collision                     // 目标版本目录已存在
	Usage                         // 参数组合或 pin 名称非法
	BackendCapability             // 后端不支持该操作
)

var kindNames = map[Kind]string{
	Other:             "other",
	NotFound:          "not found",
	MalformedVersion:  "malformed version",
	Schema:            "schema",
	UnsupportedType:   "unsupported type",
	UnsafeRead:        "unsafe read",
	VersionConflict:   "version conflict",
	Collision:         "collision",
	Usage:             "usage",
	BackendCapability: "backend capability",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Error 携带分类的领域错误.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}

	if e.Msg == "" {
		return e.Err.Error()
	}

	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is 只比较分类，使哨兵值可以匹配任意同类错误.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// 哨兵值，用于 errors.Is.
var (
	ErrNotFound          = &Error{Kind: NotFound}
	ErrMalformedVersion  = &Error{Kind: MalformedVersion}
	ErrSchema            = &Error{Kind: Schema}
	ErrUnsupportedType   = &Error{Kind: UnsupportedType}
	ErrUnsafeRead        = &Error{Kind: UnsafeRead}
	ErrVersionConflict   = &Error{Kind: VersionConflict}
	ErrCollision         = &Error{Kind: Collision}
	ErrUsage             = &Error{Kind: Usage}
	ErrBackendCapability = &Error{Kind: BackendCapability}
)

// New 构造指定分类的错误.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 给底层错误加上分类，err 为 nil 时返回 nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 返回错误链上第一个 *Error 的分类.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Other
}

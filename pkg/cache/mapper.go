package cache

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const (
	// PlaceholderVersion URL 缓存中占位的版本目录.
	PlaceholderVersion = "v"
	// PlaceholderFile URL 没有文件名时使用的文件名.
	PlaceholderFile = "file"
)

// Mapper 把远端路径映射为缓存目录下的相对路径.
type Mapper interface {
	Key(remote string) (string, error)
}

// SameNameMapper 保持远端目录结构，路径相对于 board 前缀.
type SameNameMapper struct {
	Prefix string
}

func (m SameNameMapper) Key(remote string) (string, error) {
	prefix := strings.Trim(m.Prefix, "/")
	p := strings.Trim(remote, "/")

	if prefix == "" {
		return p, nil
	}

	rel, ok := strings.CutPrefix(p, prefix+"/")
	if !ok {
		return "", fmt.Errorf("path %q is not under cache prefix %q", remote, m.Prefix)
	}

	return rel, nil
}

// HashMapper 对完整路径做哈希，文件名附在末尾便于浏览.
type HashMapper struct{}

func (HashMapper) Key(remote string) (string, error) {
	return HashName(remote) + "_" + path.Base(remote), nil
}

// URLMapper 单个 URL 缓存为 {proto}_{hash}/v/{文件名}，与 {pin}/{version}/{file} 结构一致.
type URLMapper struct {
	Protocol string
}

func (m URLMapper) Key(remote string) (string, error) {
	u, err := url.Parse(remote)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", remote, err)
	}

	trimmed := strings.TrimRight(strings.TrimRight(u.Path, " \t\r\n"), "/")

	final := trimmed
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		final = trimmed[i+1:]
	}

	if final == "" {
		final = PlaceholderFile
	}

	proto := m.Protocol
	if proto == "" {
		proto = "http"
	}

	return path.Join(proto+"_"+HashName(remote), PlaceholderVersion, final), nil
}

// ConnectMapper 把 user/content 中的第一个 / 换成 +，避免按用户生成嵌套目录.
type ConnectMapper struct{}

func (ConnectMapper) Key(remote string) (string, error) {
	return strings.Replace(strings.Trim(remote, "/"), "/", "+", 1), nil
}

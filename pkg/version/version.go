// Package version 处理 pin 版本标识：由内容哈希和创建时间组成，目录名形如 20240102T030405Z-1a2b3.
//
// Example:
//
//	v, err := version.FromFiles(afero.NewOsFs(), []string{"/tmp/stage/t1.csv"}, nil)
//	if err != nil {
//		return err
//	}
//	fmt.Println(v.String())
//
//	parsed, err := version.Parse("20240102T030405Z-1a2b3")
package version

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/yeisme/pinboard/pkg/pinerr"
)

const (
	// TimeLayout 版本时间戳格式（UTC，秒精度）.
	TimeLayout = "20060102T150405Z"
	// Separator 时间戳与哈希之间的分隔符.
	Separator = "-"
	// HashPrefixLen 目录名中保留的哈希长度.
	HashPrefixLen = 5
)

// Version 版本标识，Canonical 或 Raw.
type Version interface {
	String() string
	isVersion()
}

// Canonical 规范版本，按创建时间和哈希排序.
type Canonical struct {
	Created time.Time
	Hash    string
}

func (Canonical) isVersion() {}

func (v Canonical) String() string {
	h := v.Hash
	if len(h) > HashPrefixLen {
		h = h[:HashPrefixLen]
	}

	return v.Created.UTC().Format(TimeLayout) + Separator + h
}

// Raw 无法按规范格式解析的版本（例如 Connect 的 bundle id）.
type Raw struct {
	ID string
}

func (Raw) isVersion() {}

func (v Raw) String() string { return v.ID }

// Parse 解析规范版本字符串，失败时不做任何归一化.
func Parse(s string) (Canonical, error) {
	parts := strings.Split(s, Separator)

	switch {
	case len(parts) > 2:
		return Canonical{}, pinerr.New(pinerr.MalformedVersion,
			"version string %q has too many %q separators", s, Separator)
	case len(parts) < 2:
		return Canonical{}, pinerr.New(pinerr.MalformedVersion,
			"version string %q has too few %q separators", s, Separator)
	}

	created, err := time.ParseInLocation(TimeLayout, parts[0], time.UTC)
	if err != nil {
		return Canonical{}, pinerr.Wrap(pinerr.MalformedVersion, err, "invalid timestamp in version %q", s)
	}

	v := Canonical{Created: created, Hash: parts[1]}
	if v.String() != s {
		return Canonical{}, pinerr.New(pinerr.MalformedVersion,
			"version %q does not round trip (rendered as %q)", s, v.String())
	}

	return v, nil
}

// Guess 优先按规范格式解析，否则退化为 Raw.
func Guess(s string) Version {
	if v, err := Parse(s); err == nil {
		return v
	}

	return Raw{ID: s}
}

// Hash 计算单个文件的 xxh64 十六进制摘要.
func Hash(r io.Reader) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// FromFiles 根据已写出的数据文件生成版本，created 为 nil 时取当前时间.
// 目前一个版本只能哈希一个文件.
func FromFiles(fsys afero.Fs, files []string, created *time.Time) (Canonical, error) {
	switch {
	case len(files) == 0:
		return Canonical{}, pinerr.New(pinerr.Usage, "cannot create a version without any files")
	case len(files) > 1:
		return Canonical{}, pinerr.New(pinerr.Usage,
			"creating a version from %d files is not supported, only one file per version", len(files))
	}

	f, err := fsys.Open(files[0])
	if err != nil {
		return Canonical{}, fmt.Errorf("open %s: %w", files[0], err)
	}
	defer f.Close()

	hash, err := Hash(f)
	if err != nil {
		return Canonical{}, fmt.Errorf("hash %s: %w", files[0], err)
	}

	ts := time.Now()
	if created != nil {
		ts = *created
	}

	return Canonical{Created: ts.UTC().Truncate(time.Second), Hash: hash}, nil
}

// Compare 默认排序：规范版本按时间、哈希；Raw 按字符串；规范版本排在 Raw 前面.
func Compare(a, b Version) int {
	ca, aok := a.(Canonical)
	cb, bok := b.(Canonical)

	switch {
	case aok && bok:
		if c := ca.Created.Compare(cb.Created); c != 0 {
			return c
		}

		return strings.Compare(ca.Hash, cb.Hash)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a.String(), b.String())
	}
}

// CompareInt 把版本串当作整数比较，用于自增 id 的后端；非数字按字符串排在最后.
func CompareInt(a, b Version) int {
	ia, aerr := strconv.ParseInt(a.String(), 10, 64)
	ib, berr := strconv.ParseInt(b.String(), 10, 64)

	switch {
	case aerr == nil && berr == nil:
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}

		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return strings.Compare(a.String(), b.String())
	}
}

// Equal 按字符串形式判断两个版本是否相同.
func Equal(a, b Version) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.String() == b.String()
}

// Package drivers 负责把对象序列化为版本目录中的数据文件，以及反向读取.
//
// board 只依赖 Save/Load/DefaultTitle 三个入口，不关心具体格式.
// 能执行任意代码的格式（joblib）由 board 在调用 Load 之前做安全检查，这里不做判断.
package drivers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/storage"
)

// Driver 单个类型的编解码.
type Driver interface {
	Save(obj any, w io.Writer) error
	Load(r io.Reader) (any, error)
}

var registry = map[string]Driver{
	meta.TypeCSV:    csvDriver{},
	meta.TypeTable:  csvDriver{},
	meta.TypeJSON:   jsonDriver{},
	meta.TypeJoblib: msgpackDriver{},
}

var (
	unsafeTypes        = map[string]struct{}{meta.TypeJoblib: {}}
	requiresSingleFile = map[string]struct{}{meta.TypeCSV: {}, meta.TypeJoblib: {}}
)

// IsUnsafe 该类型的读取是否可能执行任意代码.
func IsUnsafe(typ string) bool {
	_, ok := unsafeTypes[typ]
	return ok
}

// RequiresSingleFile 该类型的数据只能是单个文件.
func RequiresSingleFile(typ string) bool {
	_, ok := requiresSingleFile[typ]
	return ok
}

// Register 注册或替换某个类型的编解码.
func Register(typ string, d Driver) {
	registry[typ] = d
}

// Save 把 obj 写到 dir 下，返回写出的文件路径.
// 文件名为 fname 加类型后缀；file 类型的 obj 是本地路径，保留原文件名（含多段后缀）.
func Save(obj any, dir, fname, typ string) ([]string, error) {
	if typ == meta.TypeFile {
		return saveFile(obj, dir)
	}

	if !meta.IsKnownType(typ) {
		return nil, pinerr.New(pinerr.UnsupportedType, "cannot save pin data of unknown type %q", typ)
	}

	d, ok := registry[typ]
	if !ok || typ == meta.TypeTable {
		return nil, pinerr.New(pinerr.UnsupportedType, "no driver available to save type %q", typ)
	}

	dst := filepath.Join(dir, fname+"."+typ)

	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dst, err)
	}

	if err := d.Save(obj, f); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.Close(); err != nil {
		return nil, err
	}

	return []string{dst}, nil
}

func saveFile(obj any, dir string) ([]string, error) {
	var src string

	switch v := obj.(type) {
	case string:
		src = v
	case []string:
		if len(v) != 1 {
			return nil, pinerr.New(pinerr.Usage, "type %q accepts exactly one path, got %d", meta.TypeFile, len(v))
		}

		src = v[0]
	default:
		return nil, pinerr.New(pinerr.Usage, "type %q expects a file path, got %T", meta.TypeFile, obj)
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.Mode().IsRegular() {
		return nil, pinerr.New(pinerr.Usage, "path is not a valid file: %s", src)
	}

	dst := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("copy %s: %w", src, err)
	}

	return []string{dst}, out.Close()
}

// FilePath 数据文件在存储上的路径. versionPath 为空时文件名本身就是完整路径（URL board）.
// table 类型固定读取 data.csv.
func FilePath(versionPath, file, typ string) string {
	if typ == meta.TypeTable {
		file = "data.csv"
	}

	if versionPath == "" {
		return file
	}

	return strings.TrimRight(versionPath, "/") + "/" + file
}

// Load 从存储读取数据文件并反序列化.
func Load(ctx context.Context, fsys storage.FileSystem, versionPath string, files []string, typ string) (any, error) {
	if len(files) == 0 {
		return nil, pinerr.New(pinerr.Schema, "pin metadata lists no files")
	}

	if len(files) > 1 && RequiresSingleFile(typ) {
		return nil, pinerr.New(pinerr.Usage, "cannot load type %q data from %d files", typ, len(files))
	}

	if typ == meta.TypeFile {
		return nil, pinerr.New(pinerr.Usage, "pins of type %q cannot be read, use PinDownload to fetch the file", typ)
	}

	if !meta.IsKnownType(typ) {
		return nil, pinerr.New(pinerr.UnsupportedType, "cannot load pin data of unknown type %q", typ)
	}

	d, ok := registry[typ]
	if !ok {
		return nil, pinerr.New(pinerr.UnsupportedType, "no driver available to load type %q", typ)
	}

	p := FilePath(versionPath, files[0], typ)

	rc, err := fsys.Open(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer rc.Close()

	return d.Load(rc)
}

// DefaultTitle 未指定标题时生成的标题.
func DefaultTitle(obj any, name string) string {
	switch v := obj.(type) {
	case *Table:
		r, c := v.Shape()
		return fmt.Sprintf("%s: a pinned %d x %d Table", name, r, c)
	case Table:
		r, c := v.Shape()
		return fmt.Sprintf("%s: a pinned %d x %d Table", name, r, c)
	}

	t := fmt.Sprintf("%T", obj)
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}

	t = strings.TrimLeft(t, "*[]")
	if obj == nil {
		t = "nil"
	}

	return fmt.Sprintf("%s: a pinned %s object", name, t)
}

// Decode 从 r 读取 typ 类型的数据，用于命令行读入本地文件.
func Decode(r io.Reader, typ string) (any, error) {
	d, ok := registry[typ]
	if !ok {
		return nil, pinerr.New(pinerr.UnsupportedType, "no driver available to decode type %q", typ)
	}

	return d.Load(r)
}

// Encode 把 obj 以 typ 格式写入 w.
func Encode(w io.Writer, obj any, typ string) error {
	d, ok := registry[typ]
	if !ok {
		return pinerr.New(pinerr.UnsupportedType, "no driver available to encode type %q", typ)
	}

	return d.Save(obj, w)
}

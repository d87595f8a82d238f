package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Local 基于 afero 的后端，file 协议使用系统磁盘，memory 协议使用内存文件系统.
type Local struct {
	fs    afero.Fs
	src   afero.Fs // Put 时读取本地暂存目录
	proto []string
}

// NewLocal 基于系统磁盘创建后端.
func NewLocal() *Local {
	return &Local{fs: afero.NewOsFs(), src: afero.NewOsFs(), proto: []string{string(TypeFile), "local"}}
}

// NewMemory 创建内存后端，常用于测试.
func NewMemory() *Local {
	return &Local{fs: afero.NewMemMapFs(), src: afero.NewOsFs(), proto: []string{string(TypeMemory)}}
}

// NewAfero 使用任意 afero.Fs 作为后端.
func NewAfero(fsys, src afero.Fs, proto ...string) *Local {
	if len(proto) == 0 {
		proto = []string{string(TypeMemory)}
	}

	return &Local{fs: fsys, src: src, proto: proto}
}

func init() {
	RegisterFactory(TypeFile, func(context.Context, any) (FileSystem, error) { return NewLocal(), nil })
	RegisterFactory(TypeMemory, func(context.Context, any) (FileSystem, error) { return NewMemory(), nil })
}

// Afero 返回底层文件系统.
func (l *Local) Afero() afero.Fs { return l.fs }

func (l *Local) Protocol() []string { return l.proto }

func (l *Local) Ls(_ context.Context, p string, detail bool) ([]Entry, error) {
	infos, err := afero.ReadDir(l.fs, p)
	if err != nil {
		return nil, fmt.Errorf("ls %s: %w", p, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		e := Entry{Name: path.Join(filepath.ToSlash(p), info.Name()), IsDir: info.IsDir()}
		if detail {
			e.Size = info.Size()
			e.ModTime = info.ModTime()
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func (l *Local) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := l.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", p)
	}

	return f, nil
}

func (l *Local) Put(_ context.Context, localDir, remotePath string, recursive bool) (string, error) {
	info, err := l.src.Stat(localDir)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", localDir, err)
	}

	if !info.IsDir() {
		if err := copyFile(l.src, l.fs, localDir, remotePath); err != nil {
			return "", err
		}

		return remotePath, nil
	}

	err = afero.Walk(l.src, localDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}

		dst := path.Join(remotePath, filepath.ToSlash(rel))

		if fi.IsDir() {
			if rel != "." && !recursive {
				return filepath.SkipDir
			}

			return l.fs.MkdirAll(dst, 0o755)
		}

		return copyFile(l.src, l.fs, p, dst)
	})
	if err != nil {
		return "", fmt.Errorf("put %s -> %s: %w", localDir, remotePath, err)
	}

	return remotePath, nil
}

func (l *Local) Exists(_ context.Context, p string) (bool, error) {
	return afero.Exists(l.fs, p)
}

func (l *Local) Mkdir(_ context.Context, p string) error {
	if err := l.fs.MkdirAll(p, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}

	return nil
}

func (l *Local) Rm(_ context.Context, p string, recursive bool) error {
	info, err := l.fs.Stat(p)
	if err != nil {
		return fmt.Errorf("rm %s: %w", p, err)
	}

	if info.IsDir() && !recursive {
		return fmt.Errorf("rm %s: is a directory, recursive removal required", p)
	}

	if err := l.fs.RemoveAll(p); err != nil {
		return fmt.Errorf("rm %s: %w", p, err)
	}

	return nil
}

func (l *Local) Info(_ context.Context, p string) (Entry, error) {
	info, err := l.fs.Stat(p)
	if err != nil {
		return Entry{}, fmt.Errorf("info %s: %w", p, err)
	}

	return Entry{Name: p, IsDir: info.IsDir(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// LocalPath 只有系统磁盘后端可以直接给出本地路径.
func (l *Local) LocalPath(p string) (string, bool) {
	if _, ok := l.fs.(*afero.OsFs); !ok {
		return "", false
	}

	return p, true
}

func copyFile(src, dst afero.Fs, from, to string) error {
	in, err := src.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := dst.MkdirAll(path.Dir(to), 0o755); err != nil {
		return err
	}

	out, err := dst.Create(to)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

// BaseNames 返回条目的最后一段路径，按名称排序.
func BaseNames(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, path.Base(e.Name))
	}

	sort.Strings(names)

	return names
}

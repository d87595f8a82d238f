package board

import (
	"context"
	"sort"
	"strings"

	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/storage"
	"github.com/yeisme/pinboard/pkg/version"
)

// manualLayout 名称到路径的固定映射. 以 / 结尾的路径指向一个版本目录，否则指向单个文件.
type manualLayout struct {
	root  string
	paths map[string]string
}

func (l manualLayout) pinPath(_ context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	if _, ok := l.paths[name]; !ok {
		return "", pinerr.New(pinerr.NotFound, "pin %q is not listed in the board's pin paths", name)
	}

	return name, nil
}

func (l manualLayout) full(name string) string {
	p := l.paths[name]
	if l.root == "" {
		return p
	}

	return strings.TrimRight(l.root, "/") + "/" + p
}

// path 版本段被忽略，映射的路径本身就是版本目录.
func (l manualLayout) path(elems ...string) string {
	if len(elems) == 0 {
		return l.root
	}

	full := l.full(elems[0])

	if len(elems) < 3 || !strings.HasSuffix(full, "/") {
		return full
	}

	return strings.TrimRight(full, "/") + "/" + elems[2]
}

func (l manualLayout) deployPath(pinPath, _ string) string { return l.path(pinPath) }

func (manualLayout) dataName(name string) string { return name }

func (manualLayout) compare(a, b version.Version) int { return version.Compare(a, b) }

// Manual 只读 board，pin 列表来自固定的 名称->路径 映射.
type Manual struct {
	*Base
	pinPaths map[string]string
}

// NewManual 创建 Manual board. root 为可选的公共前缀（例如 URL 前缀）.
func NewManual(root string, fsys storage.FileSystem, pinPaths map[string]string, opts ...Option) *Manual {
	m := &Manual{pinPaths: pinPaths}
	m.Base = newBase(root, fsys, manualLayout{root: root, paths: pinPaths}, opts...)
	m.impl = m

	return m
}

// PinPaths pin 名称到路径的映射.
func (m *Manual) PinPaths() map[string]string { return m.pinPaths }

func (m *Manual) isHTTP() bool {
	for _, p := range m.fs.Protocol() {
		if p == string(storage.TypeHTTP) || p == string(storage.TypeHTTPS) {
			return true
		}
	}

	return false
}

func (m *Manual) PinExists(ctx context.Context, name string) (bool, error) {
	if _, ok := m.pinPaths[name]; !ok {
		return false, nil
	}

	return m.Base.PinExists(ctx, name)
}

func (m *Manual) PinList(context.Context) ([]string, error) {
	names := make([]string, 0, len(m.pinPaths))
	for name := range m.pinPaths {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

func (m *Manual) PinVersions(context.Context, string, bool) ([]version.Version, error) {
	return nil, pinerr.New(pinerr.BackendCapability, "this board does not support pin versions")
}

// PinMeta http 上不以 / 结尾的路径指向单个文件，没有 data.txt，返回 Raw 元数据.
func (m *Manual) PinMeta(ctx context.Context, name string, ver version.Version) (rec meta.Record, err error) {
	ctx, done := m.observe(ctx, "meta", name)
	defer done(&err)

	if ver != nil {
		return nil, pinerr.New(pinerr.BackendCapability, "this board does not support reading a specific pin version")
	}

	p, err := m.layout.pinPath(ctx, name)
	if err != nil {
		return nil, err
	}

	full := m.layout.path(p)
	if m.isHTTP() && !strings.HasSuffix(strings.TrimSpace(full), "/") {
		return m.factory.CreateRaw([]string{full}, meta.TypeFile, name), nil
	}

	return m.readMeta(ctx, m.layout.path(p, "", meta.FileName), name, version.Raw{})
}

// PinDownload 只支持直接指向文件的 URL.
func (m *Manual) PinDownload(ctx context.Context, name string, ver version.Version) ([]string, error) {
	rec, err := m.PinMeta(ctx, name, ver)
	if err != nil {
		return nil, err
	}

	raw, ok := rec.(*meta.Raw)
	if !ok {
		return nil, pinerr.New(pinerr.BackendCapability, "PinDownload on this board can only fetch a url to a single file")
	}

	return m.download(ctx, "", raw.File, raw.Type)
}

func (m *Manual) PinVersionDelete(context.Context, string, version.Version) error {
	return pinerr.New(pinerr.BackendCapability, "this board does not support deleting pin versions")
}

func (m *Manual) PinVersionsPrune(context.Context, string, PruneOptions) error {
	return pinerr.New(pinerr.BackendCapability, "this board does not support pruning pin versions")
}

func (m *Manual) PinWrite(_ context.Context, _ any, name string, _ WriteOptions) (meta.Record, error) {
	return nil, pinerr.New(pinerr.BackendCapability, "this board is read only, cannot write pin %q", name)
}

func (m *Manual) PinUpload(_ context.Context, _ []string, name string, _ WriteOptions) (meta.Record, error) {
	return nil, pinerr.New(pinerr.BackendCapability, "this board is read only, cannot upload pin %q", name)
}

func (m *Manual) PinDelete(context.Context, ...string) error {
	return pinerr.New(pinerr.BackendCapability, "this board is read only, cannot delete pins")
}

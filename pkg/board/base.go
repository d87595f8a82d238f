package board

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/drivers"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/metrics"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/storage"
	"github.com/yeisme/pinboard/pkg/tracing"
	"github.com/yeisme/pinboard/pkg/version"
)

// layout 各类 board 不同的路径构造和版本排序规则.
type layout interface {
	// pinPath 校验名称并返回 pin 在 board 中的相对路径.
	pinPath(ctx context.Context, name string) (string, error)
	// path 拼接 board 根路径与各段.
	path(elems ...string) string
	// deployPath 新版本要上传到的路径.
	deployPath(pinPath, ver string) string
	// dataName 数据文件名（不含后缀）.
	dataName(name string) string
	compare(a, b version.Version) int
}

// folderLayout {root}/{pin}/{version}.
type folderLayout struct {
	root string
}

var reservedNames = map[string]struct{}{meta.FileName: {}, meta.ManifestName: {}}

func validateName(name string) error {
	if name == "" {
		return pinerr.New(pinerr.Usage, "pin name must not be empty")
	}

	if !validSegment(name) {
		return pinerr.New(pinerr.Usage, "invalid pin name: %q", name)
	}

	if _, ok := reservedNames[name]; ok {
		return pinerr.New(pinerr.Usage, "the pin name %q is reserved for internal use", name)
	}

	return nil
}

// validSegment 单个路径段：非空，不是 . 或 ..，不含分隔符.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// checkVersion 版本只能指向 pin 下的一个目录.
func checkVersion(name string, ver version.Version) error {
	if ver == nil || !validSegment(ver.String()) {
		return pinerr.New(pinerr.Usage, "invalid version %q for pin %q", fmt.Sprint(ver), name)
	}

	return nil
}

func (l folderLayout) pinPath(_ context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	return name, nil
}

func (l folderLayout) path(elems ...string) string {
	if l.root == "" {
		return strings.Join(elems, "/")
	}

	return strings.Join(append([]string{strings.TrimRight(l.root, "/")}, elems...), "/")
}

func (l folderLayout) deployPath(pinPath, ver string) string { return l.path(pinPath, ver) }

func (l folderLayout) dataName(name string) string { return name }

func (l folderLayout) compare(a, b version.Version) int { return version.Compare(a, b) }

// Base 基于目录结构的 board，同时承载所有 board 共用的流程.
type Base struct {
	root            string
	fs              storage.FileSystem
	versioned       bool
	allowUnsafeRead *bool
	factory         meta.Factory
	reporter        *log.Reporter
	onMetaRead      MetaReadHook
	now             func() time.Time

	layout layout
	// impl 指向最外层实现，使共用流程调用到变体覆盖的方法.
	impl Board
	// metaLocal 读取元数据时附加的后端字段.
	metaLocal func(ctx context.Context, path string) (map[string]any, error)
}

// New 创建目录结构的 board. root 为 board 在存储中的根路径.
func New(root string, fsys storage.FileSystem, opts ...Option) *Base {
	b := newBase(root, fsys, folderLayout{root: root}, opts...)
	b.impl = b

	return b
}

// NewFolder 本地目录上的 board，不使用缓存.
func NewFolder(path string, opts ...Option) *Base {
	return New(path, storage.NewLocal(), opts...)
}

func newBase(root string, fsys storage.FileSystem, l layout, opts ...Option) *Base {
	b := &Base{
		root:      root,
		fs:        fsys,
		versioned: true,
		reporter:  log.NewReporter(false, nil),
		now:       time.Now,
		layout:    l,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Root board 根路径.
func (b *Base) Root() string { return b.root }

// FS board 使用的存储.
func (b *Base) FS() storage.FileSystem { return b.fs }

// Versioned board 默认是否版本化.
func (b *Base) Versioned() bool { return b.versioned }

// Protocol 存储协议的主名称.
func (b *Base) Protocol() string {
	if p := b.fs.Protocol(); len(p) > 0 {
		return p[0]
	}

	return ""
}

func (b *Base) observe(ctx context.Context, op, name string) (context.Context, func(*error)) {
	proto := b.Protocol()

	ctx, span := tracing.StartBoardSpan(ctx, op, name, proto)

	return ctx, func(errp *error) {
		metrics.PinOperations.WithLabelValues(op, proto).Inc()

		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
			metrics.PinOperationErrors.WithLabelValues(op, pinerr.KindOf(*errp).String()).Inc()
		}

		span.End()
	}
}

func (b *Base) PinExists(ctx context.Context, name string) (bool, error) {
	p, err := b.layout.pinPath(ctx, name)
	if err != nil {
		return false, err
	}

	return b.fs.Exists(ctx, b.layout.path(p))
}

func (b *Base) PinVersions(ctx context.Context, name string, asc bool) ([]version.Version, error) {
	p, err := b.layout.pinPath(ctx, name)
	if err != nil {
		return nil, err
	}

	ok, err := b.impl.PinExists(ctx, name)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, pinerr.New(pinerr.NotFound, "cannot check version, since pin %q does not exist", name)
	}

	entries, err := b.fs.Ls(ctx, b.layout.path(p), false)
	if err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", name, err)
	}

	versions := make([]version.Version, 0, len(entries))

	for _, e := range entries {
		base := e.Name[strings.LastIndex(strings.TrimRight(e.Name, "/"), "/")+1:]
		base = strings.TrimRight(base, "/")

		if _, reserved := reservedNames[base]; reserved || base == "" {
			continue
		}

		versions = append(versions, version.Guess(base))
	}

	sort.SliceStable(versions, func(i, j int) bool {
		c := b.layout.compare(versions[i], versions[j])
		if !asc {
			return c > 0
		}

		return c < 0
	})

	return versions, nil
}

func (b *Base) PinMeta(ctx context.Context, name string, ver version.Version) (rec meta.Record, err error) {
	ctx, done := b.observe(ctx, "meta", name)
	defer done(&err)

	p, err := b.layout.pinPath(ctx, name)
	if err != nil {
		return nil, err
	}

	selected, err := b.selectVersion(ctx, name, p, ver)
	if err != nil {
		return nil, err
	}

	return b.readMeta(ctx, b.layout.path(p, selected.String(), meta.FileName), name, selected)
}

func (b *Base) selectVersion(ctx context.Context, name, pinPath string, ver version.Version) (version.Version, error) {
	if ver != nil {
		if err := checkVersion(name, ver); err != nil {
			return nil, err
		}

		ok, err := b.fs.Exists(ctx, b.layout.path(pinPath, ver.String()))
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, pinerr.New(pinerr.NotFound, "pin %q has no version %q", name, ver.String())
		}

		return ver, nil
	}

	versions, err := b.impl.PinVersions(ctx, name, true)
	if err != nil {
		return nil, err
	}

	if len(versions) == 0 {
		return nil, fmt.Errorf("pin %q exists but has no versions", name)
	}

	return versions[len(versions)-1], nil
}

// readMeta 打开并解析元数据，随后调用 onMetaRead.
func (b *Base) readMeta(ctx context.Context, path, name string, ver version.Version) (meta.Record, error) {
	rc, err := b.fs.Open(ctx, path)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, pinerr.Wrap(pinerr.NotFound, err, "metadata for pin %q version %q", name, ver.String())
		}

		return nil, err
	}
	defer rc.Close()

	var local map[string]any
	if b.metaLocal != nil {
		if local, err = b.metaLocal(ctx, path); err != nil {
			return nil, err
		}
	}

	rec, err := b.factory.Read(rc, name, ver, local)
	if err != nil {
		return nil, err
	}

	if b.onMetaRead != nil {
		if err := b.onMetaRead(path); err != nil {
			return nil, fmt.Errorf("refresh cached metadata %s: %w", path, err)
		}
	}

	return rec, nil
}

func (b *Base) PinList(ctx context.Context) ([]string, error) {
	entries, err := b.fs.Ls(ctx, b.root, false)
	if err != nil {
		if storage.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("list pins: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, n := range storage.BaseNames(entries) {
		if _, reserved := reservedNames[n]; reserved {
			continue
		}

		names = append(names, n)
	}

	return names, nil
}

func (b *Base) PinRead(ctx context.Context, name string, ver version.Version) (obj any, err error) {
	ctx, done := b.observe(ctx, "read", name)
	defer done(&err)

	rec, err := b.impl.PinMeta(ctx, name, ver)
	if err != nil {
		return nil, err
	}

	if _, ok := rec.(*meta.Raw); ok {
		return nil, pinerr.New(pinerr.Usage,
			"pin %q points directly to a file and cannot be read, use PinDownload instead", name)
	}

	if err := b.checkUnsafe(name, rec.PinType()); err != nil {
		return nil, err
	}

	p, err := b.layout.pinPath(ctx, name)
	if err != nil {
		return nil, err
	}

	return drivers.Load(ctx, b.fs, b.layout.path(p, rec.PinVersion().String()), rec.FileList(), rec.PinType())
}

func (b *Base) checkUnsafe(name, typ string) error {
	if !drivers.IsUnsafe(typ) {
		return nil
	}

	allowed, err := b.unsafeReadAllowed()
	if err != nil {
		return err
	}

	if !allowed {
		return pinerr.New(pinerr.UnsafeRead,
			"reading pin %q of type %q can execute arbitrary code and is NOT secure; "+
				"create the board with allow_unsafe_read or set %s=1",
			name, typ, configs.EnvAllowUnsafeRead)
	}

	return nil
}

func (b *Base) unsafeReadAllowed() (bool, error) {
	if b.allowUnsafeRead != nil {
		return *b.allowUnsafeRead, nil
	}

	allowed, err := configs.AllowUnsafeRead()
	if err != nil {
		return false, pinerr.Wrap(pinerr.Usage, err, "invalid environment")
	}

	return allowed, nil
}

func (b *Base) PinDownload(ctx context.Context, name string, ver version.Version) (paths []string, err error) {
	ctx, done := b.observe(ctx, "download", name)
	defer done(&err)

	rec, err := b.impl.PinMeta(ctx, name, ver)
	if err != nil {
		return nil, err
	}

	files := rec.FileList()
	if len(files) > 1 && drivers.RequiresSingleFile(rec.PinType()) {
		return nil, pinerr.New(pinerr.Usage, "cannot load pin %q: type %q needs exactly one file, found %d",
			name, rec.PinType(), len(files))
	}

	var versionPath string

	if _, raw := rec.(*meta.Raw); !raw {
		p, err := b.layout.pinPath(ctx, name)
		if err != nil {
			return nil, err
		}

		versionPath = b.layout.path(p, rec.PinVersion().String())
	}

	return b.download(ctx, versionPath, files, rec.PinType())
}

func (b *Base) download(ctx context.Context, versionPath string, files []string, typ string) ([]string, error) {
	lp, ok := b.fs.(storage.LocalPather)
	if !ok {
		return nil, pinerr.New(pinerr.BackendCapability, "PinDownload requires a cache or a local board")
	}

	paths := make([]string, 0, len(files))

	for _, f := range files {
		p := drivers.FilePath(versionPath, f, typ)

		rc, err := b.fs.Open(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", p, err)
		}

		_ = rc.Close()

		local, ok := lp.LocalPath(p)
		if !ok {
			return nil, pinerr.New(pinerr.BackendCapability, "PinDownload requires a cache or a local board")
		}

		abs, err := filepath.Abs(local)
		if err != nil {
			return nil, err
		}

		paths = append(paths, abs)
	}

	return paths, nil
}

func (b *Base) PinVersionDelete(ctx context.Context, name string, ver version.Version) (err error) {
	ctx, done := b.observe(ctx, "version_delete", name)
	defer done(&err)

	p, err := b.layout.pinPath(ctx, name)
	if err != nil {
		return err
	}

	if err := checkVersion(name, ver); err != nil {
		return err
	}

	if err := b.fs.Rm(ctx, b.layout.path(p, ver.String()), true); err != nil {
		if storage.IsNotExist(err) {
			return pinerr.Wrap(pinerr.NotFound, err, "pin %q has no version %q", name, ver.String())
		}

		return err
	}

	return nil
}

// PinVersionsPrune 最新版本永远不会被删除. 按天清理时跳过无法得知创建时间的 Raw 版本.
func (b *Base) PinVersionsPrune(ctx context.Context, name string, opts PruneOptions) (err error) {
	ctx, done := b.observe(ctx, "prune", name)
	defer done(&err)

	if err := opts.validate(); err != nil {
		return err
	}

	versions, err := b.impl.PinVersions(ctx, name, true)
	if err != nil {
		return err
	}

	toDelete := b.versionsToPrune(versions, opts)

	if len(toDelete) == 0 {
		b.reporter.Infof("No old versions to delete")
		return nil
	}

	strs := make([]string, 0, len(toDelete))
	for _, v := range toDelete {
		strs = append(strs, v.String())
	}

	b.reporter.Infof("Deleting versions: %s.", strings.Join(strs, ", "))

	for _, v := range toDelete {
		if err := b.impl.PinVersionDelete(ctx, name, v); err != nil {
			return err
		}
	}

	return nil
}

func (o PruneOptions) validate() error {
	switch {
	case o.N == 0 && o.Days == 0:
		return pinerr.New(pinerr.Usage, "must specify one of n or days to prune versions")
	case o.N != 0 && o.Days != 0:
		return pinerr.New(pinerr.Usage, "cannot specify both n and days to prune versions")
	case o.N < 0:
		return pinerr.New(pinerr.Usage, "argument n is %d, but must be greater than 0", o.N)
	case o.Days < 0:
		return pinerr.New(pinerr.Usage, "argument days is %d, but must be greater than 0", o.Days)
	}

	return nil
}

// versions 已按升序排列.
func (b *Base) versionsToPrune(versions []version.Version, opts PruneOptions) []version.Version {
	if len(versions) <= 1 {
		return nil
	}

	if opts.N > 0 {
		if opts.N >= len(versions) {
			return nil
		}

		return versions[:len(versions)-opts.N]
	}

	cutoff := b.now().Add(-time.Duration(opts.Days) * 24 * time.Hour)

	var old []version.Version

	for _, v := range versions[:len(versions)-1] {
		if c, ok := v.(version.Canonical); ok && c.Created.Before(cutoff) {
			old = append(old, v)
		}
	}

	return old
}

func (b *Base) PinSearch(ctx context.Context, query string) (recs []meta.Record, err error) {
	ctx, done := b.observe(ctx, "search", query)
	defer done(&err)

	var re *regexp.Regexp

	if query != "" {
		if re, err = regexp.Compile(query); err != nil {
			return nil, pinerr.Wrap(pinerr.Usage, err, "invalid search pattern %q", query)
		}
	}

	names, err := b.impl.PinList(ctx)
	if err != nil {
		return nil, err
	}

	recs = make([]meta.Record, 0, len(names))

	for _, name := range names {
		rec, err := b.impl.PinMeta(ctx, name, nil)
		if err != nil {
			return nil, err
		}

		if re == nil || re.MatchString(rec.PinName()) || re.MatchString(rec.PinTitle()) {
			recs = append(recs, rec)
		}
	}

	return recs, nil
}

// PinDelete 先确认所有 pin 都存在再删除，任意一个不存在时不删除任何 pin.
func (b *Base) PinDelete(ctx context.Context, names ...string) (err error) {
	ctx, done := b.observe(ctx, "delete", strings.Join(names, ","))
	defer done(&err)

	paths := make([]string, 0, len(names))

	for _, name := range names {
		p, err := b.layout.pinPath(ctx, name)
		if err != nil {
			return err
		}

		ok, err := b.impl.PinExists(ctx, name)
		if err != nil {
			return err
		}

		if !ok {
			return pinerr.New(pinerr.NotFound, "cannot delete pin, since pin %q does not exist", name)
		}

		paths = append(paths, b.layout.path(p))
	}

	for i, p := range paths {
		if err := b.fs.Rm(ctx, p, true); err != nil {
			if storage.IsNotExist(err) {
				return pinerr.Wrap(pinerr.NotFound, err, "pin %q was removed concurrently", names[i])
			}

			return err
		}

		log.Logger().Debug().Str("pin", names[i]).Str("path", p).Msg("pin deleted")
	}

	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, pinerr.ErrNotFound)
}

package board

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/yeisme/pinboard/pkg/drivers"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/version"
)

func (b *Base) PinWrite(ctx context.Context, obj any, name string, opts WriteOptions) (rec meta.Record, err error) {
	ctx, done := b.observe(ctx, "write", name)
	defer done(&err)

	return b.store(ctx, obj, name, opts, true)
}

// PinUpload 以 file 类型保存单个本地文件，文件名保持不变.
func (b *Base) PinUpload(ctx context.Context, paths []string, name string, opts WriteOptions) (rec meta.Record, err error) {
	ctx, done := b.observe(ctx, "upload", name)
	defer done(&err)

	if err := checkUploadPaths(paths); err != nil {
		return nil, err
	}

	opts.Type = meta.TypeFile

	return b.impl.PinWrite(withUpload(ctx), paths[0], name, opts)
}

type uploadKey struct{}

// withUpload 标记本次写入来自 PinUpload，使 file 类型可以通过 PinWrite 流程.
func withUpload(ctx context.Context) context.Context {
	return context.WithValue(ctx, uploadKey{}, true)
}

func isUpload(ctx context.Context) bool {
	v, _ := ctx.Value(uploadKey{}).(bool)
	return v
}

func checkUploadPaths(paths []string) error {
	if len(paths) == 0 {
		return pinerr.New(pinerr.Usage, "no paths given to upload")
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return pinerr.New(pinerr.Usage, "path is not a valid file: %s", p)
		}
	}

	if len(paths) > 1 {
		return pinerr.New(pinerr.Usage, "uploading %d files to one pin is not supported, only a single file", len(paths))
	}

	return nil
}

// store 写入流程：暂存数据和元数据，计算版本路径，检测冲突，一次性上传.
// setup 为 false 时由调用方处理非版本化写入.
func (b *Base) store(ctx context.Context, obj any, name string, opts WriteOptions, setup bool) (meta.Record, error) {
	typ := opts.Type

	switch {
	case typ == "":
		return nil, pinerr.New(pinerr.Usage, "type is required to write pin %q", name)
	case typ == meta.TypeFeather:
		b.reporter.Infof(`Writing pin type "feather" is unsupported. Switching type to "arrow".`)
		typ = meta.TypeArrow
	case typ == meta.TypeFile && !isUpload(ctx):
		return nil, pinerr.New(pinerr.Usage, "PinWrite does not support type %q, use PinUpload to save a file as a pin", typ)
	case !meta.IsKnownType(typ):
		return nil, pinerr.New(pinerr.UnsupportedType, "cannot write pin %q with unsupported type %q", name, typ)
	}

	pinPath, err := b.layout.pinPath(ctx, name)
	if err != nil {
		return nil, err
	}

	dataName := b.layout.dataName(name)

	title := opts.Title
	if title == "" {
		title = drivers.DefaultTitle(obj, dataName)
	}

	var last meta.Record

	if opts.SkipIdentical {
		exists, err := b.impl.PinExists(ctx, name)
		if err != nil {
			return nil, err
		}

		if exists {
			if last, err = b.impl.PinMeta(ctx, name, nil); err != nil {
				return nil, err
			}
		}
	}

	staging, err := os.MkdirTemp("", "pinboard-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	files, err := drivers.Save(obj, staging, dataName, typ)
	if err != nil {
		return nil, err
	}

	m, err := b.factory.Create(afero.NewOsFs(), staging, files, meta.CreateOptions{
		Type:        typ,
		Name:        name,
		Title:       title,
		Description: opts.Description,
		User:        opts.User,
		Tags:        opts.Tags,
		Created:     opts.Created,
	})
	if err != nil {
		return nil, err
	}

	if err := writeMetaFile(filepath.Join(staging, b.factory.MetaName()), m); err != nil {
		return nil, err
	}

	if prev, ok := last.(*meta.Meta); ok && prev.PinHash == m.PinHash {
		b.reporter.Infof("The hash of pin %q has not changed. Your pin will not be stored.", name)
		return last, nil
	}

	if setup {
		if err := b.versionSetup(ctx, name, m.Version, opts.Versioned); err != nil {
			return nil, err
		}
	}

	ver := m.Version.String()
	dstPinPath := b.layout.path(pinPath)
	dstVersionPath := b.layout.deployPath(pinPath, ver)

	if err := b.ensureDir(ctx, dstPinPath); err != nil {
		return nil, err
	}

	// Connect 上 pin 路径与部署路径相同，不做冲突检测
	if dstVersionPath != dstPinPath {
		exists, err := b.fs.Exists(ctx, dstVersionPath)
		if err != nil {
			return nil, err
		}

		if exists {
			return nil, pinerr.New(pinerr.Collision,
				"attempting to write pin version to %s, but that directory already exists", dstVersionPath)
		}
	}

	b.reporter.Infof("Writing pin:\nName: %q\nVersion: %s", name, ver)

	res, err := b.fs.Put(ctx, staging, dstVersionPath, true)
	if err != nil {
		return nil, fmt.Errorf("upload pin %q version %s: %w", name, ver, err)
	}

	if dstVersionPath == dstPinPath {
		m.Version = version.Raw{ID: path.Base(res)}
	}

	log.Logger().Info().Str("pin", name).Str("version", m.Version.String()).Str("type", typ).Msg("pin written")

	return m, nil
}

func writeMetaFile(p string, m *meta.Meta) error {
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}

	if err := meta.Write(f, m); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// ensureDir 目录已存在（包括并发创建）不算错误.
func (b *Base) ensureDir(ctx context.Context, p string) error {
	exists, err := b.fs.Exists(ctx, p)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	if err := b.fs.Mkdir(ctx, p); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create pin dir %s: %w", p, err)
	}

	return nil
}

// resolveVersioned 显式参数优先；否则已有多个版本时视为版本化，再否则用 board 默认值.
func (b *Base) resolveVersioned(versioned *bool, existing int) bool {
	if versioned != nil {
		return *versioned
	}

	return existing > 1 || b.versioned
}

// versionSetup 非版本化写入时删除唯一的旧版本；已有多个版本时拒绝.
func (b *Base) versionSetup(ctx context.Context, name string, newVer version.Version, versioned *bool) error {
	var versions []version.Version

	exists, err := b.impl.PinExists(ctx, name)
	if err != nil {
		return err
	}

	if exists {
		if versions, err = b.impl.PinVersions(ctx, name, true); err != nil {
			return err
		}
	}

	n := len(versions)

	switch {
	case b.resolveVersioned(versioned, n) || n == 0:
		b.reporter.Infof("Creating new version '%s'", newVer)
	case n == 1:
		b.reporter.Infof("Replacing version '%s' with '%s'", versions[0], newVer)
		return b.impl.PinVersionDelete(ctx, name, versions[0])
	default:
		return versionConflict(name, n)
	}

	return nil
}

func versionConflict(name string, n int) error {
	return pinerr.New(pinerr.VersionConflict,
		"pin %q has %d versions, but a write without versions was requested; delete the pin to un-version it",
		name, n)
}

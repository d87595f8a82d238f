package meta

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/version"
)

// ErrMissingTitle 创建元数据时没有标题.
var ErrMissingTitle = &pinerr.Error{Kind: pinerr.Schema, Msg: "title is required to create pin metadata"}

// CreateOptions 创建元数据的参数.
type CreateOptions struct {
	Type        string
	Name        string
	Title       string
	Description string
	User        map[string]any
	Tags        []string
	Created     *time.Time
}

// Factory 负责创建、读取和写出元数据记录.
type Factory struct{}

// MetaName 元数据记录文件名.
func (Factory) MetaName() string { return FileName }

// Create 从暂存目录中已写出的文件创建元数据，大小和版本都从磁盘计算.
func (Factory) Create(fsys afero.Fs, stagingDir string, files []string, opts CreateOptions) (*Meta, error) {
	if opts.Title == "" {
		return nil, ErrMissingTitle
	}

	if !IsKnownType(opts.Type) {
		return nil, pinerr.New(pinerr.UnsupportedType, "cannot create metadata for unsupported type %q", opts.Type)
	}

	ver, err := version.FromFiles(fsys, files, opts.Created)
	if err != nil {
		return nil, err
	}

	names := make(Files, 0, len(files))

	var size int64

	for _, f := range files {
		info, err := fsys.Stat(f)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f, err)
		}

		size += info.Size()

		rel, err := filepath.Rel(stagingDir, f)
		if err != nil {
			rel = filepath.Base(f)
		}

		names = append(names, filepath.ToSlash(rel))
	}

	user := opts.User
	if user == nil {
		user = map[string]any{}
	}

	return &Meta{
		Title:       opts.Title,
		Description: opts.Description,
		Created:     ver.Created.Format(version.TimeLayout),
		PinHash:     ver.Hash,
		File:        names,
		FileSize:    Size(size),
		Type:        opts.Type,
		APIVersion:  APIVersion,
		Tags:        opts.Tags,
		User:        user,
		Name:        opts.Name,
		Version:     ver,
	}, nil
}

// CreateRaw 创建最小元数据.
func (Factory) CreateRaw(files []string, typ, name string) *Raw {
	return &Raw{File: files, Type: typ, Name: name}
}

// Read 解析 data.txt，按 api_version 选择 schema：缺省为 0（旧格式），1 为当前格式，更高版本直接失败.
func (Factory) Read(r io.Reader, name string, ver version.Version, local map[string]any) (Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read metadata for %s: %w", name, err)
	}

	var fields map[string]any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, pinerr.Wrap(pinerr.Schema, err, "invalid metadata yaml for pin %q", name)
	}

	if fields == nil {
		return nil, pinerr.New(pinerr.Schema, "empty metadata for pin %q", name)
	}

	apiVersion, err := readAPIVersion(fields)
	if err != nil {
		return nil, pinerr.Wrap(pinerr.Schema, err, "pin %q", name)
	}

	if local == nil {
		local = map[string]any{}
	}

	switch {
	case apiVersion >= APIVersion+1:
		return nil, pinerr.New(pinerr.Schema,
			"pin %q uses metadata api_version %d, which is not supported by this client; upgrade to read it",
			name, apiVersion)
	case apiVersion == 0:
		return readV0(fields, name, ver, local)
	default:
		return readV1(data, name, ver, local)
	}
}

func readAPIVersion(fields map[string]any) (int, error) {
	raw, ok := fields["api_version"]
	if !ok || raw == nil {
		return 0, nil
	}

	n, ok := raw.(int)
	if !ok || n < 0 {
		return 0, fmt.Errorf("invalid api_version %v", raw)
	}

	return n, nil
}

func readV1(data []byte, name string, ver version.Version, local map[string]any) (*Meta, error) {
	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, pinerr.Wrap(pinerr.Schema, err, "decode metadata for pin %q", name)
	}

	if m.Type == "" {
		return nil, pinerr.New(pinerr.UnsupportedType, "metadata for pin %q has no type", name)
	}

	if !IsKnownType(m.Type) {
		return nil, pinerr.New(pinerr.UnsupportedType, "metadata for pin %q has unsupported type %q", name, m.Type)
	}

	if m.User == nil {
		m.User = map[string]any{}
	}

	if len(m.Unknown) == 0 {
		m.Unknown = nil
	}

	m.Name = name
	m.Version = ver
	m.Local = local

	return &m, nil
}

func readV0(fields map[string]any, name string, ver version.Version, local map[string]any) (*MetaV0, error) {
	typ, _ := fields["type"].(string)
	if !IsKnownType(typ) {
		return nil, pinerr.New(pinerr.UnsupportedType, "metadata for pin %q has unsupported type %q", name, typ)
	}

	desc, _ := fields["description"].(string)

	var files Files

	switch p := fields["path"].(type) {
	case string:
		files = Files{p}
	case []any:
		for _, v := range p {
			s, ok := v.(string)
			if !ok {
				return nil, pinerr.New(pinerr.Schema, "pin %q: path entries must be strings", name)
			}

			files = append(files, s)
		}
	default:
		return nil, pinerr.New(pinerr.Schema, "legacy metadata for pin %q has no path", name)
	}

	return &MetaV0{
		File:        files,
		Type:        typ,
		Description: desc,
		Name:        name,
		Version:     ver,
		Original:    fields,
		Local:       local,
	}, nil
}

// Marshal 生成 data.txt 内容，只支持当前格式.
func Marshal(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rec); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Write 把记录以 YAML 写到 w.
func Write(w io.Writer, rec Record) error {
	m, ok := rec.(*Meta)
	if !ok {
		return pinerr.New(pinerr.Schema, "metadata of kind %T for pin %q is read only", rec, rec.PinName())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode metadata for %s: %w", m.Name, err)
	}

	return enc.Close()
}

package meta_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/version"
)

func newStaged(t *testing.T) (afero.Fs, string) {
	t.Helper()

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/stage/t1.csv", []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	return fsys, "/stage/t1.csv"
}

// TestCreate 测试从暂存文件创建元数据.
func TestCreate(t *testing.T) {
	fsys, file := newStaged(t)
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	m, err := meta.Factory{}.Create(fsys, "/stage", []string{file}, meta.CreateOptions{
		Type:    meta.TypeCSV,
		Name:    "t1",
		Title:   "t1: a pinned 1 x 2 Table",
		Created: &created,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if m.FileSize != 8 {
		t.Errorf("file size = %d, want 8", m.FileSize)
	}

	if !reflect.DeepEqual([]string(m.File), []string{"t1.csv"}) {
		t.Errorf("file = %v", m.File)
	}

	if m.Created != "20240506T070809Z" {
		t.Errorf("created = %q", m.Created)
	}

	if m.Version.String() != "20240506T070809Z-"+m.PinHash[:5] {
		t.Errorf("version %s does not match hash %s", m.Version, m.PinHash)
	}
}

// TestCreateErrors 测试缺少标题与未知类型.
func TestCreateErrors(t *testing.T) {
	fsys, file := newStaged(t)

	_, err := meta.Factory{}.Create(fsys, "/stage", []string{file}, meta.CreateOptions{Type: meta.TypeCSV, Name: "t1"})
	if !errors.Is(err, meta.ErrMissingTitle) || !errors.Is(err, pinerr.ErrSchema) {
		t.Errorf("expected missing title, got %v", err)
	}

	_, err = meta.Factory{}.Create(fsys, "/stage", []string{file}, meta.CreateOptions{Type: "bogus", Name: "t1", Title: "x"})
	if !errors.Is(err, pinerr.ErrUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}

	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error should name the type: %v", err)
	}
}

// TestRoundTrip 测试写出再读取后字段一致，未知字段被保留.
func TestRoundTrip(t *testing.T) {
	ver := version.Guess("20240506T070809Z-abcde")
	m := &meta.Meta{
		Title:       "my title",
		Description: "some description",
		Created:     "20240506T070809Z",
		PinHash:     "abcdef0123456789",
		File:        meta.Files{"a.csv"},
		FileSize:    42,
		Type:        meta.TypeCSV,
		APIVersion:  meta.APIVersion,
		Tags:        []string{"x", "y"},
		User:        map[string]any{"owner": "ops", "n": 3},
		Name:        "a",
		Version:     ver,
		Local:       map[string]any{},
		Unknown:     map[string]any{"future_field": "kept", "nested": map[string]any{"k": "v"}},
	}

	var buf bytes.Buffer
	if err := meta.Write(&buf, m); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := buf.String()
	for _, excluded := range []string{"name:", "version:", "local:"} {
		if strings.Contains(out, "\n"+excluded) || strings.HasPrefix(out, excluded) {
			t.Errorf("serialized record should not contain %q:\n%s", excluded, out)
		}
	}

	if !strings.Contains(out, "future_field: kept") {
		t.Errorf("unknown field not flattened:\n%s", out)
	}

	rec, err := meta.Factory{}.Read(&buf, "a", ver, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	got, ok := rec.(*meta.Meta)
	if !ok {
		t.Fatalf("expected *meta.Meta, got %T", rec)
	}

	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, m)
	}
}

// TestReadMultiFile 测试文件列表和大小列表.
func TestReadMultiFile(t *testing.T) {
	src := `
title: multi
description: null
created: 20240506T070809Z
pin_hash: abc
file: [a.txt, b.txt]
file_size: [1, 2]
type: file
api_version: 1
user: {}
`
	rec, err := meta.Factory{}.Read(strings.NewReader(src), "m", version.Raw{ID: "1"}, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	m := rec.(*meta.Meta)
	if len(m.File) != 2 || m.FileSize != 3 {
		t.Errorf("unexpected files %v size %d", m.File, m.FileSize)
	}
}

// TestReadV0 测试旧格式只读.
func TestReadV0(t *testing.T) {
	src := "path: mtcars.csv\ntype: table\ndescription: old\n"

	rec, err := meta.Factory{}.Read(strings.NewReader(src), "mtcars", version.Raw{ID: ""}, nil)
	if err != nil {
		t.Fatalf("read v0: %v", err)
	}

	v0, ok := rec.(*meta.MetaV0)
	if !ok {
		t.Fatalf("expected *meta.MetaV0, got %T", rec)
	}

	if v0.File[0] != "mtcars.csv" || v0.Type != meta.TypeTable {
		t.Errorf("unexpected v0 record %#v", v0)
	}

	if err := meta.Write(&bytes.Buffer{}, v0); !errors.Is(err, pinerr.ErrSchema) {
		t.Errorf("writing v0 should fail with schema error, got %v", err)
	}
}

// TestReadFutureVersion 测试更高的 api_version 直接失败.
func TestReadFutureVersion(t *testing.T) {
	src := "title: x\ntype: csv\nfile: a.csv\napi_version: 2\n"

	_, err := meta.Factory{}.Read(strings.NewReader(src), "x", version.Raw{ID: "1"}, nil)
	if !errors.Is(err, pinerr.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}

	if !strings.Contains(err.Error(), "api_version 2") {
		t.Errorf("error should name the version: %v", err)
	}
}

// TestReadUnknownType 测试未知或缺失的类型.
func TestReadUnknownType(t *testing.T) {
	for _, src := range []string{
		"title: x\ntype: bogus\nfile: a\napi_version: 1\n",
		"title: x\nfile: a\napi_version: 1\n",
	} {
		if _, err := (meta.Factory{}).Read(strings.NewReader(src), "x", version.Raw{ID: "1"}, nil); !errors.Is(err, pinerr.ErrUnsupportedType) {
			t.Errorf("expected unsupported type for %q, got %v", src, err)
		}
	}
}

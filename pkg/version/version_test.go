package version_test

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/version"
)

// TestParseRoundTrip 测试解析后重新渲染得到原字符串.
func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"20220209T220116Z-fb6ef",
		"19991231T235959Z-00000",
		"20240229T000000Z-abcde",
	}

	for _, s := range cases {
		v, err := version.Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}

		if got := v.String(); got != s {
			t.Errorf("round trip %q got %q", s, got)
		}

		again, err := version.Parse(v.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", v.String(), err)
		}

		if again != v {
			t.Errorf("reparse mismatch: %#v vs %#v", again, v)
		}
	}
}

// TestParseSeparators 测试分隔符数量错误时给出不同的提示.
func TestParseSeparators(t *testing.T) {
	_, err := version.Parse("20220209T220116Z-fb6ef-extra")
	if !errors.Is(err, pinerr.ErrMalformedVersion) {
		t.Fatalf("expected malformed version, got %v", err)
	}

	if !strings.Contains(err.Error(), "too many") {
		t.Errorf("expected 'too many' in %q", err.Error())
	}

	_, err = version.Parse("20220209T220116Z")
	if !errors.Is(err, pinerr.ErrMalformedVersion) {
		t.Fatalf("expected malformed version, got %v", err)
	}

	if !strings.Contains(err.Error(), "too few") {
		t.Errorf("expected 'too few' in %q", err.Error())
	}
}

// TestParseRejectsNonCanonical 测试无法原样渲染的输入直接失败.
func TestParseRejectsNonCanonical(t *testing.T) {
	for _, s := range []string{
		"2022-02-09",              // 时间格式不对
		"20220209T220116Z-fb6ef0", // 哈希超过 5 位
		"20220209T2201Z-fb6ef",
	} {
		if _, err := version.Parse(s); !errors.Is(err, pinerr.ErrMalformedVersion) {
			t.Errorf("parse %q: expected malformed version, got %v", s, err)
		}
	}
}

// TestGuessFallsBackToRaw 测试非规范字符串退化为 Raw.
func TestGuessFallsBackToRaw(t *testing.T) {
	v := version.Guess("12345")
	if _, ok := v.(version.Raw); !ok {
		t.Fatalf("expected raw version, got %T", v)
	}

	if v.String() != "12345" {
		t.Errorf("raw string = %q", v.String())
	}

	if _, ok := version.Guess("20220209T220116Z-fb6ef").(version.Canonical); !ok {
		t.Errorf("expected canonical version")
	}
}

// TestFromFiles 测试内容哈希与时间截断.
func TestFromFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/stage/a.txt", []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	created := time.Date(2024, 1, 2, 3, 4, 5, 999, time.FixedZone("x", 3600))

	v, err := version.FromFiles(fsys, []string{"/stage/a.txt"}, &created)
	if err != nil {
		t.Fatalf("from files: %v", err)
	}

	if len(v.Hash) != 16 {
		t.Errorf("expected 16 hex chars, got %q", v.Hash)
	}

	if got, want := v.String(), "20240102T020405Z-"+v.Hash[:5]; got != want {
		t.Errorf("version = %q, want %q", got, want)
	}

	same, err := version.FromFiles(fsys, []string{"/stage/a.txt"}, &created)
	if err != nil {
		t.Fatal(err)
	}

	if same != v {
		t.Errorf("hash is not deterministic: %v vs %v", same, v)
	}
}

// TestFromFilesRejectsMultiple 测试多文件时直接报错而不是只哈希第一个.
func TestFromFilesRejectsMultiple(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_ = afero.WriteFile(fsys, "/a", []byte("a"), 0o644)
	_ = afero.WriteFile(fsys, "/b", []byte("b"), 0o644)

	if _, err := version.FromFiles(fsys, []string{"/a", "/b"}, nil); !errors.Is(err, pinerr.ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}

	if _, err := version.FromFiles(fsys, nil, nil); err == nil {
		t.Fatal("expected error for empty file list")
	}
}

// TestCompare 测试默认排序与整数排序.
func TestCompare(t *testing.T) {
	vs := []version.Version{
		version.Guess("20240102T000000Z-bbbbb"),
		version.Raw{ID: "zzz"},
		version.Guess("20230102T000000Z-aaaaa"),
		version.Guess("20240102T000000Z-aaaaa"),
	}

	sort.SliceStable(vs, func(i, j int) bool { return version.Compare(vs[i], vs[j]) < 0 })

	want := []string{"20230102T000000Z-aaaaa", "20240102T000000Z-aaaaa", "20240102T000000Z-bbbbb", "zzz"}
	for i, v := range vs {
		if v.String() != want[i] {
			t.Errorf("position %d = %s, want %s", i, v, want[i])
		}
	}

	ids := []version.Version{version.Raw{ID: "10"}, version.Raw{ID: "9"}, version.Raw{ID: "100"}}
	sort.SliceStable(ids, func(i, j int) bool { return version.CompareInt(ids[i], ids[j]) < 0 })

	if ids[0].String() != "9" || ids[2].String() != "100" {
		t.Errorf("integer ordering wrong: %v", ids)
	}
}

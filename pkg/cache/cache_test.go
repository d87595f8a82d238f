package cache_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/pinboard/pkg/cache"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/storage"
)

const (
	pinVersion = "20240102T030405Z-1a2b3"
	metaPath   = "pins/t1/" + pinVersion + "/data.txt"
)

func newRemote(t *testing.T) *storage.Local {
	t.Helper()

	remote := storage.NewMemory()
	require.NoError(t, afero.WriteFile(remote.Afero(), metaPath, []byte("title: t1\n"), 0o644))
	require.NoError(t, afero.WriteFile(remote.Afero(), "pins/t1/"+pinVersion+"/t1.csv", []byte("a,b\n1,2\n"), 0o644))

	return remote
}

func readAll(t *testing.T, fsys storage.FileSystem, p string) string {
	t.Helper()

	rc, err := fsys.Open(context.Background(), p)
	require.NoError(t, err)

	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	return string(data)
}

func TestOpenDownloadsOnce(t *testing.T) {
	remote := newRemote(t)
	dir := t.TempDir()
	c := cache.New(remote, dir, cache.SameNameMapper{Prefix: "pins"})

	_, ok := c.LocalPath(metaPath)
	require.False(t, ok)

	require.Equal(t, "title: t1\n", readAll(t, c, metaPath))

	local, ok := c.LocalPath(metaPath)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "t1", pinVersion, "data.txt"), local)

	// 远端删除后仍然读取本地副本
	require.NoError(t, remote.Rm(context.Background(), "pins/t1", true))
	require.Equal(t, "title: t1\n", readAll(t, c, metaPath))
}

func TestOpenMissing(t *testing.T) {
	c := cache.New(storage.NewMemory(), t.TempDir(), cache.SameNameMapper{Prefix: "pins"})

	_, err := c.Open(context.Background(), "pins/none/data.txt")
	require.Error(t, err)
	require.True(t, storage.IsNotExist(err))
}

func TestMappers(t *testing.T) {
	key, err := cache.SameNameMapper{Prefix: "bucket/pins"}.Key("bucket/pins/t1/v/data.txt")
	require.NoError(t, err)
	require.Equal(t, "t1/v/data.txt", key)

	_, err = cache.SameNameMapper{Prefix: "bucket/pins"}.Key("other/t1")
	require.Error(t, err)

	key, err = cache.HashMapper{}.Key("bucket/pins/t1.csv")
	require.NoError(t, err)
	require.Equal(t, cache.HashName("bucket/pins/t1.csv")+"_t1.csv", key)

	url := "https://example.com/data/mtcars.csv?raw=1"
	key, err = cache.URLMapper{Protocol: "https"}.Key(url)
	require.NoError(t, err)
	require.Equal(t, "https_"+cache.HashName(url)+"/v/mtcars.csv", key)

	key, err = cache.URLMapper{}.Key("http://example.com/")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(key, "/v/file"))

	key, err = cache.ConnectMapper{}.Key("alice/model/12/data.txt")
	require.NoError(t, err)
	require.Equal(t, "alice+model/12/data.txt", key)
}

func TestPrefixCache(t *testing.T) {
	require.Equal(t, "s3_"+cache.HashName("bucket/pins"), cache.PrefixCache("s3", "bucket/pins"))
	require.Len(t, cache.HashName("x"), 64)
}

// 读取元数据后 touch，使缓存不会被清理.
func TestTouchCoupling(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	root := t.TempDir()
	dir := filepath.Join(root, cache.PrefixCache("memory", "pins"))
	c := cache.New(newRemote(t), dir, cache.SameNameMapper{Prefix: "pins"}, cache.WithClock(clock))

	readAll(t, c, metaPath)

	local, ok := c.LocalPath(metaPath)
	require.True(t, ok)

	old := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(local, old, old))

	pruner := cache.NewPruner(dir).WithClock(clock)

	stale, err := pruner.OldVersions(1)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	require.NoError(t, c.TouchAccessTime(metaPath))

	stale, err = pruner.OldVersions(1)
	require.NoError(t, err)
	require.Empty(t, stale)

	info, err := os.Stat(local)
	require.NoError(t, err)
	require.True(t, info.ModTime().Equal(old))
}

func TestTouchOnOpen(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	c := cache.New(newRemote(t), dir, cache.SameNameMapper{Prefix: "pins"},
		cache.WithClock(func() time.Time { return now }), cache.WithTouchOnOpen())

	readAll(t, c, metaPath)

	local, _ := c.LocalPath(metaPath)
	old := now.Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(local, old, old))

	readAll(t, c, metaPath)

	ok, err := cache.NewPruner(dir).WithClock(func() time.Time { return now }).ShouldPrune(1, filepath.Dir(local))
	require.NoError(t, err)
	require.False(t, ok)
}

func writeCachedVersion(t *testing.T, root, board, pin, ver string, atime time.Time) string {
	t.Helper()

	dir := filepath.Join(root, board, pin, ver)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("title: x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, pin+".csv"), bytes.Repeat([]byte("x"), 1024), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "data.txt"), atime, atime))

	return dir
}

func TestPrune(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	root := t.TempDir()

	fresh := writeCachedVersion(t, root, "s3_aaa", "t1", "v2", now.Add(-time.Hour))
	stale := writeCachedVersion(t, root, "s3_aaa", "t1", "v1", now.Add(-40*24*time.Hour))
	other := writeCachedVersion(t, root, "file_bbb", "t2", "v1", now.Add(-31*24*time.Hour))

	// 没有 data.txt 的目录不参与清理
	require.NoError(t, os.MkdirAll(filepath.Join(root, "s3_aaa", "t3", "partial"), 0o755))

	var asked []string

	res, err := cache.Prune(root, 30, func(dirs []string, size int64) bool {
		asked = dirs
		require.Greater(t, size, int64(2048))

		return false
	}, log.Discard(), clock)
	require.NoError(t, err)
	require.False(t, res.Deleted)
	require.ElementsMatch(t, []string{stale, other}, asked)
	require.DirExists(t, stale)

	res, err = cache.Prune(root, 30, cache.Always, log.Discard(), clock)
	require.NoError(t, err)
	require.True(t, res.Deleted)
	require.NoDirExists(t, stale)
	require.NoDirExists(t, other)
	require.DirExists(t, fresh)

	// 再次执行没有可清理的版本
	res, err = cache.Prune(root, 30, cache.Always, log.Discard(), clock)
	require.NoError(t, err)
	require.Empty(t, res.Versions)

	_, err = cache.Prune(root, 0, cache.Always, log.Discard(), clock)
	require.Error(t, err)
}

func TestInfo(t *testing.T) {
	root := t.TempDir()
	writeCachedVersion(t, root, "s3_aaa", "t1", "v1", time.Now())
	writeCachedVersion(t, root, "s3_aaa", "t1", "v2", time.Now())

	usage, err := cache.Info(root)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	require.Equal(t, 2, usage[0].Versions)
	require.Greater(t, usage[0].Bytes, int64(2048))

	usage, err = cache.Info(filepath.Join(root, "missing"))
	require.NoError(t, err)
	require.Empty(t, usage)
}

func TestPromptConfirm(t *testing.T) {
	var out bytes.Buffer

	ok := cache.PromptConfirm(strings.NewReader("1\n"), &out)([]string{"a", "b"}, 2048)
	require.True(t, ok)
	require.Contains(t, out.String(), "Delete 2 pin versions, freeing 2.0 KiB?")

	ok = cache.PromptConfirm(strings.NewReader("2\n"), &out)([]string{"a"}, 1)
	require.False(t, ok)
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("PINBOARD_CACHE_DIR", "/tmp/pinboard-cache")
	require.Equal(t, "/tmp/pinboard-cache", cache.DefaultDir("/configured"))

	t.Setenv("PINBOARD_CACHE_DIR", "")
	require.Equal(t, "/configured", cache.DefaultDir("/configured"))
}

package storage_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/storage"
)

func stage(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t1.csv"), []byte("a,b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("title: t1\n"), 0o644))

	return dir
}

func TestLocalPutAndList(t *testing.T) {
	ctx := context.Background()
	fsys := storage.NewMemory()

	res, err := fsys.Put(ctx, stage(t), "pins/t1/v1", true)
	require.NoError(t, err)
	require.Equal(t, "pins/t1/v1", res)

	entries, err := fsys.Ls(ctx, "pins/t1/v1", true)
	require.NoError(t, err)
	require.Equal(t, []string{"data.txt", "t1.csv"}, storage.BaseNames(entries))

	for _, e := range entries {
		require.False(t, e.IsDir)
		require.Positive(t, e.Size)
	}

	dirs, err := fsys.Ls(ctx, "pins", false)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	require.True(t, dirs[0].IsDir)

	rc, err := fsys.Open(ctx, "pins/t1/v1/t1.csv")
	require.NoError(t, err)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "a,b\n", string(data))
}

func TestLocalNotExist(t *testing.T) {
	ctx := context.Background()
	fsys := storage.NewMemory()

	_, err := fsys.Open(ctx, "missing")
	require.True(t, storage.IsNotExist(err))

	_, err = fsys.Ls(ctx, "missing", false)
	require.True(t, storage.IsNotExist(err))

	_, err = fsys.Info(ctx, "missing")
	require.True(t, storage.IsNotExist(err))

	ok, err := fsys.Exists(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.True(t, storage.IsNotExist(storage.NotExist("x")))
}

func TestLocalMkdirRm(t *testing.T) {
	ctx := context.Background()
	fsys := storage.NewMemory()

	require.NoError(t, fsys.Mkdir(ctx, "pins/t1"))
	require.NoError(t, fsys.Mkdir(ctx, "pins/t1"))

	_, err := fsys.Put(ctx, stage(t), "pins/t1/v1", true)
	require.NoError(t, err)

	require.Error(t, fsys.Rm(ctx, "pins/t1", false))
	require.NoError(t, fsys.Rm(ctx, "pins/t1", true))

	ok, err := fsys.Exists(ctx, "pins/t1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalPath(t *testing.T) {
	_, ok := storage.NewMemory().LocalPath("a")
	require.False(t, ok)

	p, ok := storage.NewLocal().LocalPath("/tmp/a")
	require.True(t, ok)
	require.Equal(t, "/tmp/a", p)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	fsys, err := storage.New(ctx, storage.TypeMemory, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"memory"}, fsys.Protocol())

	_, err = storage.New(ctx, "ftp", nil)
	require.Error(t, err)

	require.Contains(t, storage.RegisteredTypes(), storage.TypeFile)
}

// flaky 前 n 次调用 Exists 返回错误.
type flaky struct {
	*storage.Local
	failures int
	calls    int
}

func (f *flaky) Exists(ctx context.Context, p string) (bool, error) {
	f.calls++
	if f.calls <= f.failures {
		return false, errors.New("connection reset")
	}

	return f.Local.Exists(ctx, p)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	remote := &flaky{Local: storage.NewAfero(afero.NewMemMapFs(), afero.NewOsFs(), "s3"), failures: 100}

	fsys := storage.NewBreaker(remote, configs.CircuitBreakerConfig{
		Enabled:         true,
		FailureRate:     0.5,
		MinRequests:     3,
		IntervalSeconds: 60,
		TimeoutSeconds:  60,
	})

	for range 3 {
		_, err := fsys.Exists(ctx, "pins")
		require.Error(t, err)
		require.False(t, errors.Is(err, storage.ErrUnavailable))
	}

	_, err := fsys.Exists(ctx, "pins")
	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.Equal(t, 3, remote.calls)
	require.Equal(t, "open", fsys.(*storage.Breaker).State())
}

func TestBreakerIgnoresNotExist(t *testing.T) {
	ctx := context.Background()

	fsys := storage.NewBreaker(storage.NewMemory(), configs.CircuitBreakerConfig{
		Enabled:     true,
		FailureRate: 0.1,
		MinRequests: 1,
	})

	for range 5 {
		_, err := fsys.Open(ctx, "missing")
		require.True(t, storage.IsNotExist(err))
	}

	require.Equal(t, "closed", fsys.(*storage.Breaker).State())
}

func TestBreakerDisabled(t *testing.T) {
	mem := storage.NewMemory()
	require.Same(t, mem, storage.NewBreaker(mem, configs.CircuitBreakerConfig{}))
}

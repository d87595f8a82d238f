package board_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/cache"
	"github.com/yeisme/pinboard/pkg/internal/storage/httpfs"
	"github.com/yeisme/pinboard/pkg/log"
	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/pinerr"
)

// newURLBoard 先在本地 board 写入 pin，再通过 http 以 URL board 的方式读取.
func newURLBoard(t *testing.T) *board.Manual {
	t.Helper()

	ctx := context.Background()
	root := t.TempDir()
	src := board.NewFolder(root, board.WithReporter(log.Discard()))

	rec, err := src.PinWrite(ctx, sampleTable(), "t1", board.WriteOptions{Type: meta.TypeCSV})
	require.NoError(t, err)

	srv := httptest.NewServer(http.FileServer(http.Dir(root)))
	t.Cleanup(srv.Close)

	ver := rec.PinVersion().String()
	paths := map[string]string{
		"t1":  "t1/" + ver + "/",
		"raw": "t1/" + ver + "/t1.csv",
	}

	fsys := cache.New(httpfs.NewWithClient(srv.Client()), t.TempDir(), cache.URLMapper{Protocol: "http"}, cache.WithTouchOnOpen())

	return board.NewManual(srv.URL, fsys, paths, board.WithReporter(log.Discard()))
}

func TestManualRead(t *testing.T) {
	ctx := context.Background()
	b := newURLBoard(t)

	names, err := b.PinList(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"raw", "t1"}, names)

	rec, err := b.PinMeta(ctx, "t1", nil)
	require.NoError(t, err)
	require.Equal(t, meta.TypeCSV, rec.PinType())

	obj, err := b.PinRead(ctx, "t1", nil)
	require.NoError(t, err)
	require.Equal(t, sampleTable(), obj)

	exists, err := b.PinExists(ctx, "unlisted")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = b.PinMeta(ctx, "unlisted", nil)
	require.ErrorIs(t, err, pinerr.ErrNotFound)
}

func TestManualRawFile(t *testing.T) {
	ctx := context.Background()
	b := newURLBoard(t)

	rec, err := b.PinMeta(ctx, "raw", nil)
	require.NoError(t, err)
	require.IsType(t, &meta.Raw{}, rec)
	require.Equal(t, meta.TypeFile, rec.PinType())

	_, err = b.PinRead(ctx, "raw", nil)
	require.ErrorIs(t, err, pinerr.ErrUsage)
	require.Contains(t, err.Error(), "PinDownload")

	paths, err := b.PinDownload(ctx, "raw", nil)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, "t1.csv", filepath.Base(paths[0]))

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.Equal(t, "x,y\n1,a\n2,b\n3,c\n", string(data))

	_, err = b.PinDownload(ctx, "t1", nil)
	require.ErrorIs(t, err, pinerr.ErrBackendCapability)
}

func TestManualIsReadOnly(t *testing.T) {
	ctx := context.Background()
	b := newURLBoard(t)

	_, err := b.PinVersions(ctx, "t1", true)
	require.ErrorIs(t, err, pinerr.ErrBackendCapability)

	_, err = b.PinWrite(ctx, sampleTable(), "t1", board.WriteOptions{Type: meta.TypeCSV})
	require.ErrorIs(t, err, pinerr.ErrBackendCapability)

	require.ErrorIs(t, b.PinDelete(ctx, "t1"), pinerr.ErrBackendCapability)
	require.ErrorIs(t, b.PinVersionsPrune(ctx, "t1", board.PruneOptions{N: 1}), pinerr.ErrBackendCapability)

	_, err = b.PinMeta(ctx, "t1", nil)
	require.NoError(t, err)
}

package drivers_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yeisme/pinboard/pkg/drivers"
	"github.com/yeisme/pinboard/pkg/pinerr"
	"github.com/yeisme/pinboard/pkg/storage"
)

func sampleTable() *drivers.Table {
	return &drivers.Table{
		Columns: []string{"x", "y"},
		Rows:    [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()

	files, err := drivers.Save(sampleTable(), dir, "t1", "csv")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "t1.csv")}, files)

	obj, err := drivers.Load(context.Background(), storage.NewLocal(), dir, []string{"t1.csv"}, "csv")
	require.NoError(t, err)
	require.Equal(t, sampleTable(), obj)
}

func TestCSVRejectsOtherObjects(t *testing.T) {
	_, err := drivers.Save(map[string]any{"a": 1}, t.TempDir(), "t1", "csv")
	require.True(t, errors.Is(err, pinerr.ErrUsage))
}

func TestTableReadsDataCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a\n1\n"), 0o644))

	obj, err := drivers.Load(context.Background(), storage.NewLocal(), dir, []string{"data.rds"}, "table")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, obj.(*drivers.Table).Columns)
}

func TestJSONAndMsgpack(t *testing.T) {
	obj := map[string]any{"model": "linear", "features": []any{"x", "y"}, "fitted": true}

	for _, typ := range []string{"json", "joblib"} {
		t.Run(typ, func(t *testing.T) {
			dir := t.TempDir()

			files, err := drivers.Save(obj, dir, "m", typ)
			require.NoError(t, err)
			require.Equal(t, "m."+typ, filepath.Base(files[0]))

			got, err := drivers.Load(context.Background(), storage.NewLocal(), dir, []string{"m." + typ}, typ)
			require.NoError(t, err)
			require.Equal(t, obj, got)
		})
	}
}

func TestSaveFileKeepsName(t *testing.T) {
	src := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("gz"), 0o644))

	dir := t.TempDir()

	files, err := drivers.Save(src, dir, "ignored", "file")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "archive.tar.gz")}, files)

	_, err = drivers.Save(dir, t.TempDir(), "x", "file")
	require.True(t, errors.Is(err, pinerr.ErrUsage))

	_, err = drivers.Load(context.Background(), storage.NewLocal(), dir, []string{"archive.tar.gz"}, "file")
	require.True(t, errors.Is(err, pinerr.ErrUsage))
	require.Contains(t, err.Error(), "PinDownload")
}

func TestUnsupportedTypes(t *testing.T) {
	_, err := drivers.Save(sampleTable(), t.TempDir(), "t1", "bogus")
	require.True(t, errors.Is(err, pinerr.ErrUnsupportedType))
	require.Contains(t, err.Error(), `"bogus"`)

	for _, typ := range []string{"parquet", "arrow", "rds"} {
		_, err := drivers.Save(sampleTable(), t.TempDir(), "t1", typ)
		require.True(t, errors.Is(err, pinerr.ErrUnsupportedType), typ)
	}

	_, err = drivers.Load(context.Background(), storage.NewLocal(), t.TempDir(), []string{"a.csv", "b.csv"}, "csv")
	require.True(t, errors.Is(err, pinerr.ErrUsage))
}

func TestDefaultTitle(t *testing.T) {
	require.Equal(t, "t1: a pinned 3 x 2 Table", drivers.DefaultTitle(sampleTable(), "t1"))
	require.Equal(t, "m: a pinned string object", drivers.DefaultTitle("x", "m"))
	require.True(t, drivers.IsUnsafe("joblib"))
	require.False(t, drivers.IsUnsafe("json"))
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, drivers.Encode(&buf, sampleTable(), "csv"))
	require.Equal(t, "x,y\n1,a\n2,b\n3,c\n", buf.String())

	obj, err := drivers.Decode(&buf, "csv")
	require.NoError(t, err)
	require.Equal(t, sampleTable(), obj)

	_, err = drivers.Decode(&buf, "parquet")
	require.True(t, errors.Is(err, pinerr.ErrUnsupportedType))
}

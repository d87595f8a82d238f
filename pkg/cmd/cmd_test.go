package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// run 以给定参数执行根命令，返回 stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

func TestPinWriteReadCycle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(src, []byte("x,y\n1,a\n2,b\n"), 0o644))

	boardDir := filepath.Join(dir, "board")
	board := []string{"--config", dir, "--quiet", "--protocol", "file", "--path", boardDir}

	out, err := run(t, append(board, "pin", "write", "t1", "-f", src, "-t", "csv", "--title", "small")...)
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))

	out, err = run(t, append(board, "pin", "list")...)
	require.NoError(t, err)
	require.Equal(t, "t1\n", out)

	out, err = run(t, append(board, "pin", "read", "t1")...)
	require.NoError(t, err)
	require.Equal(t, "x,y\n1,a\n2,b\n", out)

	out, err = run(t, append(board, "pin", "search", "small")...)
	require.NoError(t, err)
	require.Contains(t, out, `"total": 1`)

	out, err = run(t, append(board, "deparse")...)
	require.NoError(t, err)
	require.Contains(t, out, "--protocol file")

	_, err = run(t, append(board, "pin", "prune", "t1")...)
	require.Error(t, err)

	_, err = run(t, append(board, "pin", "delete", "t1")...)
	require.NoError(t, err)

	out, err = run(t, append(board, "pin", "list")...)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestStorageList(t *testing.T) {
	out, err := run(t, "--config", t.TempDir(), "storage", "list")
	require.NoError(t, err)
	require.Contains(t, out, "- file")
	require.Contains(t, out, "- s3")
}

func TestCacheInfoEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PINBOARD_CACHE_DIR", filepath.Join(dir, "cache"))

	out, err := run(t, "--config", dir, "cache", "info")
	require.NoError(t, err)
	require.Contains(t, out, "No cached boards.")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("connect:\n  api_key: hunter2\n"), 0o644))

	out, err := run(t, "--config", dir, "config", "show")
	require.NoError(t, err)
	require.NotContains(t, out, "hunter2")
	require.Contains(t, out, `"***"`)

	out, err = run(t, "--config", dir, "config", "validate")
	require.NoError(t, err)
	require.Equal(t, "config ok\n", out)
}

func TestMaskSecrets(t *testing.T) {
	tree := map[string]any{
		"S3":      map[string]any{"SecretAccessKey": "minioadmin", "Bucket": "pins"},
		"Connect": map[string]any{"APIKey": "", "ServerURL": "https://connect.example.com"},
	}

	maskSecrets(tree)

	require.Equal(t, "***", tree["S3"].(map[string]any)["SecretAccessKey"])
	require.Equal(t, "pins", tree["S3"].(map[string]any)["Bucket"])
	require.Equal(t, "", tree["Connect"].(map[string]any)["APIKey"])
}

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yeisme/pinboard/pkg/configs"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer

	l := New(configs.LogConfig{Level: "warn"}, false, &buf)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(configs.LogConfig{Level: "loud"}, false, &bytes.Buffer{})
	if l.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", l.GetLevel())
	}
}

// TestNewFile 测试 lumberjack 文件输出.
func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pinboard.log")

	l := New(configs.LogConfig{Level: "info", EnableFile: true, FilePath: path, MaxSize: 1}, false, nil)
	l.Info().Str("pin", "mtcars").Msg("pin written")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if !strings.Contains(string(data), `"pin":"mtcars"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestNewNop(t *testing.T) {
	l := New(configs.LogConfig{Level: "info"}, false, nil)
	if l.GetLevel() != zerolog.Disabled {
		t.Errorf("level = %v, want disabled", l.GetLevel())
	}
}

func TestGinWriter(t *testing.T) {
	var buf bytes.Buffer

	l := zerolog.New(&buf)
	w := NewGinWriter(&l, zerolog.InfoLevel)

	if _, err := w.Write([]byte("[GIN-debug] [WARNING] Running in \"debug\" mode.\n")); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"message":"Running in \"debug\" mode."`) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer

	l := New(configs.LogConfig{Level: "info", Format: "json"}, false, &buf)
	l.Info().Str("pin", "mtcars").Msg("pin written")

	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"pin":"mtcars"`) {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

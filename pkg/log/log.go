// Package log 基于 zerolog 的全局 logger 和命令行输出.
//
// 控制台总是输出到 stderr，log.enable_file 开启后同时写入 lumberjack 轮转文件.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/pinboard/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 初始化全局 logger.
func Init() {
	initOnce.Do(initLogger)
}

func initLogger() {
	cfg := configs.GetConfig()

	logger = New(cfg.Log, cfg.Server.Debug, os.Stderr)
	log.Logger = logger

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

// New 按配置创建 logger. console 为空时不输出到控制台；log.format 为 json 时控制台也输出 json.
// 无效的级别回退到 info.
func New(cfg configs.LogConfig, debug bool, console io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		if cfg.Level != "" {
			fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info\n", cfg.Level)
		}

		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer

	switch {
	case console == nil:
	case cfg.Format == "json":
		writers = append(writers, console)
	default:
		writers = append(writers, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = console
			w.TimeFormat = time.Kitchen
		}))
	}

	if cfg.EnableFile && cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	if len(writers) == 0 {
		return zerolog.Nop()
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp()
	if debug {
		ctx = ctx.Caller().Stack()
	}

	return ctx.Logger()
}

// Logger 返回全局 logger，首次使用时初始化.
func Logger() *zerolog.Logger {
	initOnce.Do(initLogger)

	return &logger
}

// Component 带 component 字段的子 logger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// GinWriter 把 Gin 文本行转发为 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

// Write 去掉 [GIN-debug] 前缀；带 [WARNING] 的行提升为 warn.
func (w *GinWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	msg = strings.TrimSpace(strings.TrimPrefix(msg, "[GIN-debug]"))

	level := w.level
	if rest, ok := strings.CutPrefix(msg, "[WARNING]"); ok {
		msg = strings.TrimSpace(rest)

		if level < zerolog.WarnLevel {
			level = zerolog.WarnLevel
		}
	}

	if msg == "" {
		return len(p), nil
	}

	switch level {
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		w.logger.Error().Str("component", "gin").Msg(msg)
	case zerolog.WarnLevel:
		w.logger.Warn().Str("component", "gin").Msg(msg)
	default:
		w.logger.Info().Str("component", "gin").Msg(msg)
	}

	return len(p), nil
}

package log

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Reporter 面向用户的提示：总是写日志，非 quiet 时同时输出到 stderr.
// 由调用方在构造 board 时显式传入.
type Reporter struct {
	Quiet  bool
	out    io.Writer
	logger *zerolog.Logger
}

// NewReporter 创建 Reporter，out 为 nil 时使用 os.Stderr.
func NewReporter(quiet bool, out io.Writer) *Reporter {
	if out == nil {
		out = os.Stderr
	}

	return &Reporter{Quiet: quiet, out: out}
}

// Discard 不输出任何提示的 Reporter.
func Discard() *Reporter {
	return &Reporter{Quiet: true, out: io.Discard}
}

// WithLogger 替换使用的 logger.
func (r *Reporter) WithLogger(l *zerolog.Logger) *Reporter {
	r.logger = l
	return r
}

// Infof 输出一条提示.
func (r *Reporter) Infof(format string, args ...any) {
	if r == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)

	l := r.logger
	if l == nil {
		l = Logger()
	}

	l.Info().Msg(msg)

	if !r.Quiet {
		fmt.Fprintln(r.out, msg)
	}
}

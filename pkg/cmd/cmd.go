// Package cmd pinboard 命令行.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/log"
)

var (
	configPath string
	debug      bool
	quiet      bool

	// board 参数，命令行指定时覆盖配置文件
	flagProtocol  string
	flagPath      string
	flagUnsafe    bool
	flagPinPaths  map[string]string
	flagServerURL string

	rootCmd = &cobra.Command{
		Use:               "pinboard",
		Short:             "Publish, version and share data pins on local disk, object storage or http",
		Version:           configs.AppVersion,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", ".", "config file or directory")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress informational messages")
	pf.StringVar(&flagProtocol, "protocol", "", "board protocol: file, memory, s3, gcs, url, rsc")
	pf.StringVar(&flagPath, "path", "", "board root path, bucket prefix or url prefix")
	pf.BoolVar(&flagUnsafe, "allow-unsafe-read", false, "allow reading pin types that can execute code")
	pf.StringToStringVar(&flagPinPaths, "pin-paths", nil, "name=path pairs for url boards")
	pf.StringVar(&flagServerURL, "server-url", "", "Connect server url")

	registerPinCommands()
	registerCacheCommands()
	registerConfigsCommands()
	registerStorageCommands()
	registerServeCommand()
	registerDeparseCommand()
}

// initConfig 加载配置并应用命令行覆盖.
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := configs.InitConfig(configPath); err != nil {
		return err
	}

	cfg := configs.GetConfig()
	pf := cmd.Root().PersistentFlags()

	if pf.Changed("protocol") {
		cfg.Board.Protocol = flagProtocol
	}

	if pf.Changed("path") {
		cfg.Board.Path = flagPath
	}

	if pf.Changed("allow-unsafe-read") {
		cfg.Board.AllowUnsafeRead = flagUnsafe
	}

	if pf.Changed("pin-paths") {
		cfg.Board.PinPaths = flagPinPaths
	}

	if pf.Changed("server-url") {
		cfg.Connect.ServerURL = flagServerURL
	}

	if debug {
		cfg.Server.Debug = true
		cfg.Log.Level = "debug"
	}

	return configs.Validate(cfg)
}

// newReporter 命令行的提示直接输出到 stderr，日志只记录警告以上.
func newReporter(cmd *cobra.Command) *log.Reporter {
	l := log.Logger().Level(zerolog.WarnLevel)
	if debug {
		l = *log.Logger()
	}

	return log.NewReporter(quiet, cmd.ErrOrStderr()).WithLogger(&l)
}

// openBoard 按当前配置创建 board.
func openBoard(cmd *cobra.Command) (board.Board, error) {
	return board.FromConfig(cmd.Context(), configs.GetConfig(), newReporter(cmd))
}

// Execute runs the root command. SIGINT/SIGTERM 取消命令的 context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

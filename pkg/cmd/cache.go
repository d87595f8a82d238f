package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yeisme/pinboard/pkg/cache"
	"github.com/yeisme/pinboard/pkg/configs"
)

var (
	cachePruneDays int
	cachePruneYes  bool

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "inspect and prune the local pin cache",
	}

	cacheInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "show the size of each board cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := cache.DefaultDir(configs.GetConfig().Cache.Dir)

			usage, err := cache.Info(root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache root: %s\n", root)

			if len(usage) == 0 {
				fmt.Fprintln(out, "No cached boards.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BOARD\tVERSIONS\tSIZE")

			var total int64

			for _, u := range usage {
				total += u.Bytes
				fmt.Fprintf(w, "%s\t%d\t%s\n", u.Dir, u.Versions, humanize.IBytes(uint64(u.Bytes)))
			}

			fmt.Fprintf(w, "total\t\t%s\n", humanize.IBytes(uint64(total)))

			return w.Flush()
		},
	}

	cachePruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "delete cached pin versions not accessed within --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configs.GetConfig()

			days := cfg.Cache.PruneDays
			if cmd.Flags().Changed("days") {
				days = cachePruneDays
			}

			confirm := cache.PromptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
			if cachePruneYes {
				confirm = cache.Always
			}

			_, err := cache.Prune(cache.DefaultDir(cfg.Cache.Dir), days, confirm, newReporter(cmd), time.Now)

			return err
		},
	}
)

// registerCacheCommands 注册 cache 子命令.
func registerCacheCommands() {
	cachePruneCmd.Flags().IntVar(&cachePruneDays, "days", configs.DefaultCachePruneDays, "prune versions not accessed for this many days")
	cachePruneCmd.Flags().BoolVarP(&cachePruneYes, "yes", "y", false, "do not ask for confirmation")

	cacheCmd.AddCommand(cacheInfoCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

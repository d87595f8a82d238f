package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/pinboard/pkg/app"
	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/configs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the board over an http api, with scheduled cache pruning",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := configs.GetConfig()

		b, err := openBoard(cmd)
		if err != nil {
			return err
		}

		a, err := app.NewApp(cmd.Context(), cfg, b)
		if err != nil {
			return err
		}

		return a.Run(cmd.Context())
	},
}

var deparseCmd = &cobra.Command{
	Use:   "deparse",
	Short: "print the command line flags that recreate the configured board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := openBoard(cmd)
		if err != nil {
			return err
		}

		s, err := board.Deparse(b)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), s)

		return nil
	},
}

func registerServeCommand() {
	rootCmd.AddCommand(serveCmd)
}

func registerDeparseCommand() {
	rootCmd.AddCommand(deparseCmd)
}

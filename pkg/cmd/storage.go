package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/pinboard/pkg/storage"
)

var (
	storageCmd = &cobra.Command{
		Use:   "storage",
		Short: "storage backend related commands",
	}

	storageListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered storage backends",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered storage types:")

			for _, t := range storage.RegisteredTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}
)

// registerStorageCommands 注册 storage 子命令.
func registerStorageCommands() {
	storageCmd.AddCommand(storageListCmd)
	rootCmd.AddCommand(storageCmd)
}

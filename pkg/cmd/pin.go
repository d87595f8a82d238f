package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/pinboard/pkg/board"
	"github.com/yeisme/pinboard/pkg/drivers"
	"github.com/yeisme/pinboard/pkg/internal/types"
	"github.com/yeisme/pinboard/pkg/meta"
	"github.com/yeisme/pinboard/pkg/version"
)

var (
	pinVersion string

	writeFile          string
	writeType          string
	writeTitle         string
	writeDescription   string
	writeTags          []string
	writeVersioned     bool
	writeSkipIdentical bool

	versionsDesc bool

	pruneN    int
	pruneDays int

	pinCmd = &cobra.Command{
		Use:   "pin",
		Short: "read, write and manage pins on the configured board",
	}

	pinListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all pin names",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			names, err := b.PinList(cmd.Context())
			if err != nil {
				return err
			}

			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}

			return nil
		},
	}

	pinVersionsCmd = &cobra.Command{
		Use:   "versions NAME",
		Short: "list the versions of a pin, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			versions, err := b.PinVersions(cmd.Context(), args[0], !versionsDesc)
			if err != nil {
				return err
			}

			for _, v := range versions {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}

			return nil
		},
	}

	pinMetaCmd = &cobra.Command{
		Use:   "meta NAME",
		Short: "print the metadata of a pin version as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			rec, err := b.PinMeta(cmd.Context(), args[0], selectedVersion())
			if err != nil {
				return err
			}

			resp, err := types.Describe(rec)
			if err != nil {
				return err
			}

			return printJSON(cmd, resp)
		},
	}

	pinReadCmd = &cobra.Command{
		Use:   "read NAME",
		Short: "write the pin data to stdout in its stored format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			rec, err := b.PinMeta(ctx, args[0], selectedVersion())
			if err != nil {
				return err
			}

			obj, err := b.PinRead(ctx, args[0], selectedVersion())
			if err != nil {
				return err
			}

			return drivers.Encode(cmd.OutOrStdout(), obj, rec.PinType())
		},
	}

	pinWriteCmd = &cobra.Command{
		Use:   "write NAME",
		Short: "decode a local file with the given type and write it as a new pin version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(writeFile)
			if err != nil {
				return err
			}
			defer f.Close()

			obj, err := drivers.Decode(f, writeType)
			if err != nil {
				return err
			}

			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			rec, err := b.PinWrite(cmd.Context(), obj, args[0], writeOptions(cmd, writeType))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rec.PinVersion())

			return nil
		},
	}

	pinUploadCmd = &cobra.Command{
		Use:   "upload NAME FILE",
		Short: "store a local file as a pin of type file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			rec, err := b.PinUpload(cmd.Context(), args[1:], args[0], writeOptions(cmd, meta.TypeFile))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rec.PinVersion())

			return nil
		},
	}

	pinDownloadCmd = &cobra.Command{
		Use:   "download NAME",
		Short: "fetch the files of a pin version and print their local paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			paths, err := b.PinDownload(cmd.Context(), args[0], selectedVersion())
			if err != nil {
				return err
			}

			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}

			return nil
		},
	}

	pinDeleteCmd = &cobra.Command{
		Use:   "delete NAME...",
		Short: "delete whole pins, or one version with --version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			if pinVersion == "" {
				return b.PinDelete(cmd.Context(), args...)
			}

			if len(args) != 1 {
				return fmt.Errorf("--version deletes a version of a single pin, got %d names", len(args))
			}

			return b.PinVersionDelete(cmd.Context(), args[0], version.Guess(pinVersion))
		},
	}

	pinPruneCmd = &cobra.Command{
		Use:   "prune NAME",
		Short: "delete old versions, keeping the newest --n or those younger than --days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			return b.PinVersionsPrune(cmd.Context(), args[0], board.PruneOptions{N: pruneN, Days: pruneDays})
		},
	}

	pinSearchCmd = &cobra.Command{
		Use:   "search [QUERY]",
		Short: "search pins by name or title",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBoard(cmd)
			if err != nil {
				return err
			}

			query := strings.Join(args, "")

			recs, err := b.PinSearch(cmd.Context(), query)
			if err != nil {
				return err
			}

			out := types.ListPinsResponse{Pins: make([]types.PinSummary, 0, len(recs)), Total: len(recs)}
			for _, rec := range recs {
				out.Pins = append(out.Pins, types.Summarize(rec))
			}

			return printJSON(cmd, out)
		},
	}
)

func selectedVersion() version.Version {
	if pinVersion == "" {
		return nil
	}

	return version.Guess(pinVersion)
}

func writeOptions(cmd *cobra.Command, typ string) board.WriteOptions {
	opts := board.WriteOptions{
		Type:          typ,
		Title:         writeTitle,
		Description:   writeDescription,
		Tags:          writeTags,
		SkipIdentical: writeSkipIdentical,
	}

	if cmd.Flags().Changed("versioned") {
		opts.Versioned = board.Bool(writeVersioned)
	}

	return opts
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(b))

	return nil
}

func addWriteFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&writeTitle, "title", "", "pin title")
	f.StringVar(&writeDescription, "description", "", "pin description")
	f.StringSliceVar(&writeTags, "tag", nil, "pin tags")
	f.BoolVar(&writeVersioned, "versioned", false, "keep previous versions")
	f.BoolVar(&writeSkipIdentical, "skip-identical", false, "do not write when the content hash is unchanged")
}

// registerPinCommands 注册 pin 子命令.
func registerPinCommands() {
	for _, c := range []*cobra.Command{pinMetaCmd, pinReadCmd, pinDownloadCmd, pinDeleteCmd} {
		c.Flags().StringVar(&pinVersion, "version", "", "pin version, latest when empty")
	}

	pinVersionsCmd.Flags().BoolVar(&versionsDesc, "desc", false, "newest first")

	pinWriteCmd.Flags().StringVarP(&writeFile, "file", "f", "", "local file to read the data from")
	pinWriteCmd.Flags().StringVarP(&writeType, "type", "t", meta.TypeCSV, "pin type: csv, json, joblib")
	_ = pinWriteCmd.MarkFlagRequired("file")

	addWriteFlags(pinWriteCmd)
	addWriteFlags(pinUploadCmd)

	pinPruneCmd.Flags().IntVar(&pruneN, "n", 0, "number of newest versions to keep")
	pinPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "keep versions created within this many days")

	pinCmd.AddCommand(pinListCmd, pinVersionsCmd, pinMetaCmd, pinReadCmd, pinWriteCmd, pinUploadCmd,
		pinDownloadCmd, pinDeleteCmd, pinPruneCmd, pinSearchCmd)
	rootCmd.AddCommand(pinCmd)
}

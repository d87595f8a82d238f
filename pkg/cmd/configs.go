package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/pinboard/pkg/configs"
	"github.com/yeisme/pinboard/pkg/rule"
)

// secretKeys 输出配置时需要隐藏的字段.
var secretKeys = []string{"api_key", "secret_access_key", "password", "token"}

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect the pinboard configuration",
	}

	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(out, "config not initialized")
				return nil
			}

			if used := v.ConfigFileUsed(); used != "" {
				fmt.Fprintln(out, used)
			} else {
				fmt.Fprintln(out, "no config file used (defaults and environment only)")
			}

			return nil
		},
	}

	showCmd = &cobra.Command{
		Use:     "show",
		Aliases: []string{"debug"},
		Short:   "print the effective config as JSON with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := configs.GetViper()
			if v == nil {
				return fmt.Errorf("config not initialized")
			}

			if debug {
				v.Debug()
			}

			raw, err := sonic.Marshal(configs.GetConfig())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			var tree map[string]any
			if err := sonic.Unmarshal(raw, &tree); err != nil {
				return fmt.Errorf("unmarshal config: %w", err)
			}

			maskSecrets(tree)

			return printJSON(cmd, tree)
		},
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "check the config against its validation rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := configs.Validate(configs.GetConfig())
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "config ok")
				return nil
			}

			fields := rule.Errors(err)
			keys := make([]string, 0, len(fields))

			for k := range fields {
				keys = append(keys, k)
			}

			sort.Strings(keys)

			for _, k := range keys {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", k, fields[k])
			}

			return err
		},
	}
)

// maskSecrets 把敏感字段的非空值替换为 ***.
func maskSecrets(tree map[string]any) {
	for k, v := range tree {
		switch val := v.(type) {
		case map[string]any:
			maskSecrets(val)
		case string:
			if val == "" {
				continue
			}

			key := strings.ReplaceAll(strings.ToLower(k), "_", "")

			for _, s := range secretKeys {
				if strings.Contains(key, strings.ReplaceAll(s, "_", "")) {
					tree[k] = "***"
					break
				}
			}
		}
	}
}

func registerConfigsCommands() {
	configCmd.AddCommand(pathCmd, showCmd, validateCmd)

	rootCmd.AddCommand(configCmd)
}

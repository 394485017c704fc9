package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "asset-cache",
		Short:         "Cache remote render assets under stable local names",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "配置文件路径（默认 ./asset-cache.toml，可被 ASSET_CACHE_CONFIG 覆盖）")
	rootCmd.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "覆盖缓存根目录")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "覆盖日志级别")

	rootCmd.AddCommand(newPrepareCommand(ctx))
	rootCmd.AddCommand(newMergeCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newPruneCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newCheckConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

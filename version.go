package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/version"
)

// newVersionCommand 输出注入的版本 + 提交信息，不需要加载配置。
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return nil
		},
	}
}

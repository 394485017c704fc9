package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/publicdir"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var outDir, publicDir string

	cmd := &cobra.Command{
		Use:   "merge <namespace>",
		Short: "Rebuild a merged public directory from static files and cached assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := ctx.newManager(cmd.Context())
			if err != nil {
				return err
			}
			ns := ctx.namespace(args[0])
			target := firstNonEmpty(outDir, ns.MergedDir)
			if target == "" {
				return errors.New("需要 --out 或在配置中声明 MergedDir")
			}
			nsDir, err := store.NamespaceDir(ns.Name)
			if err != nil {
				return err
			}
			report, err := runMerge(cmd.Context(), ctx, nsDir, firstNonEmpty(publicDir, ns.PublicDir), target)
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "合并目录（会被整体重建）")
	cmd.Flags().StringVar(&publicDir, "public", "", "静态资源目录")

	return cmd
}

// runMerge 使用全局的排除后缀重建合并目录。
func runMerge(ctx context.Context, cc *commandContext, namespaceDir, staticDir, mergedDir string) (*publicdir.Report, error) {
	return publicdir.Merge(ctx, publicdir.Options{
		NamespaceDir:    namespaceDir,
		StaticDir:       staticDir,
		MergedDir:       mergedDir,
		ExcludeSuffixes: cc.cfg.Global.ExcludeSuffixes,
		Logger:          cc.logger,
		Metrics:         cc.metrics,
	})
}

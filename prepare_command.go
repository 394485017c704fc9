package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assets"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/logging"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/project"
)

type prepareOptions struct {
	urls        []string
	projectPath string
	refresh     bool
	noCache     bool
	propsPath   string
	mergeInto   string
	publicDir   string
}

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var opts prepareOptions

	cmd := &cobra.Command{
		Use:   "prepare <namespace>",
		Short: "Download or reuse the assets of a namespace and print the slot map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.urls, "url", nil, "待缓存的 URL，可重复")
	cmd.Flags().StringVar(&opts.projectPath, "project", "", "项目描述文件（JSON/YAML）")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "强制重新下载")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "跳过缓存，所有 URL 原样返回")
	cmd.Flags().StringVar(&opts.propsPath, "props", "", "写出 studio props 的路径（需配合 --project，默认写入命名空间目录的 studio-props.json）")
	cmd.Flags().StringVar(&opts.mergeInto, "merge-into", "", "准备完成后重建的合并目录")
	cmd.Flags().StringVar(&opts.publicDir, "public", "", "合并时使用的静态目录")

	return cmd
}

func runPrepare(cmd *cobra.Command, ctx *commandContext, namespace string, opts prepareOptions) error {
	if opts.propsPath != "" && opts.projectPath == "" {
		return errors.New("--props 需要同时指定 --project")
	}

	manager, _, err := ctx.newManager(cmd.Context())
	if err != nil {
		return err
	}
	cfg := ctx.cfg
	ns := ctx.namespace(namespace)

	var proj *project.Project
	var descriptors []assets.Descriptor
	if opts.projectPath != "" {
		proj, err = project.Load(opts.projectPath)
		if err != nil {
			return fmt.Errorf("加载项目失败: %w", err)
		}
		descriptors = append(descriptors, proj.Descriptors()...)
	}
	descriptors = append(descriptors, assets.DescriptorsFromURLs(opts.urls)...)
	if len(descriptors) == 0 {
		descriptors = slotDescriptors(ns)
	}
	if len(descriptors) == 0 {
		return fmt.Errorf("命名空间 %s 没有可准备的资源，请使用 --url、--project 或在配置中声明 Slot", namespace)
	}

	result, err := manager.Prepare(cmd.Context(), assets.Request{
		Namespace:   namespace,
		Descriptors: descriptors,
		Refresh:     opts.refresh || cfg.Global.Refresh,
		Disabled:    opts.noCache || cfg.Global.DisableCache,
	})
	if err != nil {
		return err
	}

	mergedDir := firstNonEmpty(opts.mergeInto, ns.MergedDir)
	if mergedDir != "" && result.Dir != "" {
		if _, err := runMerge(cmd.Context(), ctx, result.Dir, firstNonEmpty(opts.publicDir, ns.PublicDir), mergedDir); err != nil {
			return err
		}
	}

	propsPath := opts.propsPath
	if propsPath == "" && proj != nil && result.Dir != "" {
		propsPath = filepath.Join(result.Dir, project.PropsFile)
	}
	if propsPath != "" {
		// 缓存被禁用时 props 保留远端地址。
		var cached *assets.Result
		if result.Dir != "" {
			cached = result
		}
		props := project.BuildProps(proj, cached, time.Now())
		if err := project.WriteProps(propsPath, props); err != nil {
			return err
		}
		fields := logging.BaseFields("prepare", ctx.configPath())
		fields["namespace"] = namespace
		fields["props"] = propsPath
		ctx.logger.WithFields(fields).Info("props_written")
	}

	return writeJSON(cmd, result)
}

func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assets"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/manifest"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <namespace>",
		Short: "List cached slots of a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, _, err := ctx.newManager(cmd.Context())
			if err != nil {
				return err
			}
			inv, err := manager.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Namespace: %s\n", inv.Namespace)
			fmt.Fprintf(out, "Directory: %s\n", inv.Dir)
			if inv.ManifestStatus != manifest.StatusLoaded {
				fmt.Fprintf(out, "Manifest:  %s\n", inv.ManifestStatus)
			}
			if len(inv.Entries) == 0 {
				fmt.Fprintln(out, "Cached slots: none")
				return nil
			}

			const stampLayout = "2006-01-02 15:04"
			var total int64
			rows := make([][]string, 0, len(inv.Entries))
			for _, entry := range inv.Entries {
				size := "missing"
				if entry.Present {
					size = humanize.IBytes(uint64(entry.SizeBytes))
					total += entry.SizeBytes
				}
				cached := "unknown"
				if !entry.CachedAt.IsZero() {
					cached = entry.CachedAt.Local().Format(stampLayout)
				}
				rows = append(rows, []string{entry.Slot, entry.Kind, size, cached, entry.Filename})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Slot", "Kind", "Size", "Cached", "File"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Total: %s\n", humanize.IBytes(uint64(total)))
			return nil
		},
	}
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune <namespace>",
		Short: "Remove files no manifest slot references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, _, err := ctx.newManager(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := manager.Prune(cmd.Context(), args[0], assets.PruneOptions{
				DryRun:          dryRun,
				ExcludeSuffixes: ctx.cfg.Global.ExcludeSuffixes,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}
			for _, name := range removed {
				fmt.Fprintf(out, "%s %s\n", verb, name)
			}
			fmt.Fprintf(out, "%s %d file(s)\n", verb, len(removed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只列出将被删除的文件")
	return cmd
}

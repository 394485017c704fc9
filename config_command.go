package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/config"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/logging"
)

func newCheckConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.ensure()
			if err != nil {
				return err
			}
			fields := logging.BaseFields("check_config", ctx.configPath())
			fields["cache_dir"] = cfg.Global.CacheDir
			fields["namespaces"] = config.NamespaceNames(cfg.Namespaces)
			fields["s3"] = cfg.S3.Enabled
			fields["result"] = "ok"
			logger.WithFields(fields).Info("config_valid")
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d namespace(s), cache dir %s\n", len(cfg.Namespaces), cfg.Global.CacheDir)
			return nil
		},
	}
}

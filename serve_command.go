package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/logging"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/server"
	"github.com/wisdom-in-a-nutshell/asset-cache/internal/version"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var port int

	cmd := &cobra.Command{
		Use:   "serve <namespace>",
		Short: "Serve a namespace (or its merged directory) over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := ctx.newManager(cmd.Context())
			if err != nil {
				return err
			}
			cfg, logger := ctx.cfg, ctx.logger
			ns := ctx.namespace(args[0])
			if port <= 0 {
				port = cfg.Global.ListenPort
			}

			app, err := server.NewApp(server.AppOptions{
				Logger:          logger,
				Store:           store,
				Namespace:       ns.Name,
				MergedDir:       firstNonEmpty(dir, ns.MergedDir),
				ExcludeSuffixes: cfg.Global.ExcludeSuffixes,
				Metrics:         ctx.metrics,
			})
			if err != nil {
				return err
			}

			fields := logging.BaseFields("startup", ctx.configPath())
			fields["namespace"] = ns.Name
			fields["listen_port"] = port
			fields["version"] = version.Full()
			logger.WithFields(fields).Info("config_loaded")

			go func() {
				<-cmd.Context().Done()
				if err := app.Shutdown(); err != nil {
					logger.WithError(err).Warn("shutdown_failed")
				}
			}()

			logger.WithFields(logrus.Fields{
				"action": "listen",
				"port":   port,
			}).Info("server_listening")
			if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
				return fmt.Errorf("HTTP 服务启动失败: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "静态服务目录，默认直接读取缓存目录")
	cmd.Flags().IntVar(&port, "port", 0, "监听端口，默认使用 ListenPort")
	return cmd
}

package main

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/any-hub/modcache/internal/logging"
	"github.com/any-hub/modcache/internal/server"
	"github.com/any-hub/modcache/internal/server/routes"
	"github.com/any-hub/modcache/internal/version"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the cache over HTTP",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(root)
			if err != nil {
				return err
			}
			comps, err := rt.buildComponents("")
			if err != nil {
				return err
			}
			if listenAddr == "" {
				listenAddr = rt.cfg.Global.ListenAddr
			}

			app, err := server.NewApp(server.AppOptions{Logger: rt.logger})
			if err != nil {
				return err
			}
			routes.RegisterCacheRoutes(app, routes.CacheOptions{
				Store:     comps.store,
				Engine:    comps.engine,
				ImportMap: comps.importMap,
				Logger:    rt.logger,
			})

			fields := logging.BaseFields("startup", rt.configPath)
			fields["listen_addr"] = listenAddr
			fields["cache_root"] = rt.cfg.CacheRoot()
			fields["version"] = version.Full()
			rt.logger.WithFields(fields).Info("配置加载完成")

			// 收到中断信号后优雅关闭，Listen 随之返回。
			ctx := cmd.Context()
			go func() {
				<-ctx.Done()
				if err := app.Shutdown(); err != nil {
					rt.logger.WithError(err).Warn("shutdown_failed")
				}
			}()

			rt.logger.WithFields(logrus.Fields{
				"action": "listen",
				"addr":   listenAddr,
			}).Info("Fiber 服务启动")
			return app.Listen(listenAddr, fiber.ListenConfig{DisableStartupMessage: true})
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides ListenAddr in config)")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/any-hub/modcache/internal/importmap"
	"github.com/any-hub/modcache/internal/logging"
)

func newCheckConfigCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and exit",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(root)
			if err != nil {
				return err
			}
			if path := rt.cfg.Global.ImportMap; path != "" {
				if _, err := importmap.Load(path); err != nil {
					return err
				}
			}

			fields := logging.BaseFields("check_config", rt.configPath)
			fields["cache_root"] = rt.cfg.CacheRoot()
			fields["listen_addr"] = rt.cfg.Global.ListenAddr
			fields["result"] = "ok"
			rt.logger.WithFields(fields).Info("配置校验通过")
			fmt.Fprintf(cmd.OutOrStdout(), "config ok (cache root %s)\n", rt.cfg.CacheRoot())
			return nil
		},
	}
}

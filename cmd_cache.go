package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/any-hub/modcache/internal/cache"
	"github.com/any-hub/modcache/internal/logging"
	"github.com/any-hub/modcache/internal/traverse"
)

func newCacheCmd(root *rootOptions) *cobra.Command {
	var (
		reload        string
		importMapPath string
	)

	cmd := &cobra.Command{
		Use:   "cache [--reload[=list]] [--import-map file] <url>",
		Short: "Download a module and all of its dependencies into the cache",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(root)
			if err != nil {
				return err
			}
			comps, err := rt.buildComponents(importMapPath)
			if err != nil {
				return err
			}

			directive := cache.ParseReload(reload)
			fields := logging.BaseFields("cache", rt.configPath)
			fields["url"] = args[0]
			fields["reload"] = directive.String()
			fields["cache_root"] = rt.cfg.CacheRoot()
			rt.logger.WithFields(fields).Debug("cache_start")

			summary, err := comps.engine.Run(cmd.Context(), args[0], traverse.RunOptions{
				ImportMap: comps.importMap,
				Reload:    directive,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cached %s: %d modules (%d fetched, %d reused, %d skipped) in %s\n",
				summary.Root, summary.Visited, summary.Fetched, summary.Reused, summary.Skipped, summary.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&reload, "reload", "", "refetch modules: bare flag reloads everything, or a comma-separated list of URLs")
	cmd.Flags().Lookup("reload").NoOptDefVal = "true"
	cmd.Flags().StringVar(&importMapPath, "import-map", "", "import map JSON file (overrides ImportMap in config)")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/any-hub/modcache/internal/cache"
)

func newResolveCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Print the cache path of a remote URL; other identifiers are printed unchanged",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(root)
			if err != nil {
				return err
			}
			deriver := cache.NewDeriver(rt.cfg.CacheRoot())
			fmt.Fprintln(cmd.OutOrStdout(), deriver.Resolve(args[0]))
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/any-hub/modcache/internal/cache"
	"github.com/any-hub/modcache/internal/logging"
)

// infoPayload 是 info 子命令的 JSON 输出。
type infoPayload struct {
	cache.Entry
	Headers map[string]string `json:"headers,omitempty"`
}

func newInfoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <url>",
		Short: "Show the cache entry and stored response headers of a module",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(root)
			if err != nil {
				return err
			}
			entry, err := store.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			payload := infoPayload{Entry: *entry}
			meta, err := store.Metadata(cmd.Context(), args[0])
			switch {
			case err == nil:
				payload.Headers = meta.Headers
			case !errors.Is(err, cache.ErrNotFound):
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(payload)
		},
	}
}

func newEvictCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evict <url>",
		Short: "Remove a module body and its metadata from the cache",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(root)
			if err != nil {
				return err
			}
			store, err := cache.NewStore(rt.cfg.CacheRoot())
			if err != nil {
				return err
			}
			if err := store.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fields := logging.BaseFields("evict", rt.configPath)
			fields["url"] = args[0]
			rt.logger.WithFields(fields).Info("module_evicted")
			fmt.Fprintf(cmd.OutOrStdout(), "evicted %s\n", args[0])
			return nil
		},
	}
}

func openStore(root *rootOptions) (cache.Store, error) {
	rt, err := bootstrap(root)
	if err != nil {
		return nil, err
	}
	return cache.NewStore(rt.cfg.CacheRoot())
}

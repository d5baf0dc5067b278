package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/any-hub/modcache/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd)
		},
	}
}

// printVersion 输出注入的版本 + 提交信息。
func printVersion(cmd *cobra.Command) {
	fmt.Fprintln(cmd.OutOrStdout(), version.Full())
}

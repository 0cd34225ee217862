// sharedclip: per-device shared clipboard service with bounded history.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sharedclip",
		Short: "Shared clipboard service with per-device history",
		Long: `sharedclip keeps one clipboard entry per device id. Each entry holds the
current value and the last 64 replaced values.

Run "sharedclip server" to start the service. It answers the JSON HTTP API
under /share/ and a gRPC API on the same port. The other commands are gRPC
clients of a running server.

Config file search order (first found wins):
  /etc/sharedclip/sharedclip.toml
  $HOME/.config/sharedclip/sharedclip.toml
  path supplied via --config

All flags can be set via SHAREDCLIP_<FLAG> env vars or config-file keys.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServerCmd(),
		newRegisterCmd(),
		newUnregisterCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newStatusCmd(),
		newDiscoverCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sharedclip %s\n", Version)
		},
	}
}

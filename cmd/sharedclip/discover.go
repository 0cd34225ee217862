package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharedclip/internal/discovery"
)

func newDiscoverCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "discover",
		Short:   "Find sharedclip servers on the local network",
		Long:    `Browses mDNS for servers started with --mdns and lists their addresses.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			closer, err := setupLogging(v)
			if err != nil {
				return err
			}
			defer closer.Close()

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, cancel := context.WithTimeout(parent, v.GetDuration("wait"))
			defer cancel()

			servers, err := discovery.Browse(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(servers) == 0 {
				fmt.Fprintln(out, color.YellowString("No servers found."))
				return nil
			}
			tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "INSTANCE\tADDR\tHOST\tVERSION")
			for _, s := range servers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Instance, s.Addr, s.Host, s.Version)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Duration("wait", 3*time.Second, "how long to listen for announcements")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)
	return cmd
}

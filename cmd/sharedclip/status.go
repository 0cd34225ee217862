package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharedclip/internal/registry"
)

func newStatusCmd() *cobra.Command {
	cmd := clientCommand(&cobra.Command{
		Use:   "status",
		Short: "Show registered devices",
		Long:  `Displays the device count and every registered device in registration order.`,
		Args:  cobra.NoArgs,
	}, runStatus)
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper, s *session, _ []string) error {
	count, err := s.DeviceCount(s.ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	devices, err := s.Devices(s.ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"server":  s.addr,
			"count":   count,
			"devices": devices,
		})
	}

	printStatus(out, s.addr, count, devices, time.Now())
	return nil
}

func printStatus(out io.Writer, addr string, count int, devices []registry.DeviceInfo, now time.Time) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Server:\t%s\n", addr)
	fmt.Fprintf(w, "Devices:\t%d\n", count)
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(devices) == 0 {
		fmt.Fprintln(out, "No devices registered.")
		return
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tHISTORY\tCURRENT\tREGISTERED\tUPDATED")
	for _, d := range devices {
		current := color.YellowString("empty")
		if d.HasCurrent {
			current = color.GreenString("set")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			d.DeviceID, d.HistoryCount, current,
			fmtAge(d.RegisteredAt, now), fmtAge(d.UpdatedAt, now),
		)
	}
	_ = tw.Flush()
}

func fmtAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := now.Sub(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPasteCmd() *cobra.Command {
	cmd := clientCommand(&cobra.Command{
		Use:   "paste",
		Short: "Print a device clipboard to stdout (like pbpaste)",
		Long: `Writes the current clipboard value of --device to stdout. A device with no
value prints nothing and exits 0.

With --history the replaced values are listed oldest first, followed by the
current value.`,
		Args: cobra.NoArgs,
	}, runPaste)
	cmd.Flags().String("device", "", "device id to read (required)")
	cmd.Flags().Bool("history", false, "list history instead of the current value")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func runPaste(cmd *cobra.Command, v *viper.Viper, s *session, _ []string) error {
	device := v.GetString("device")
	out := cmd.OutOrStdout()

	if !v.GetBool("history") {
		data, err := s.Paste(s.ctx, device)
		if err != nil {
			return fmt.Errorf("paste: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	snap, err := s.Get(s.ctx, device)
	if err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	dim := color.New(color.Faint)
	for i, h := range snap.History {
		fmt.Fprintf(out, "%s %s\n", dim.Sprintf("%2d", i), h)
	}
	if snap.HasCurrent {
		fmt.Fprintf(out, "%s %s\n", color.CyanString(" *"), snap.Current)
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCopyCmd() *cobra.Command {
	cmd := clientCommand(&cobra.Command{
		Use:   "copy",
		Short: "Copy stdin to a device clipboard (like pbcopy)",
		Long: `Reads stdin and stores it as the current clipboard value of --device.
Without --device the value is written to every registered device.`,
		Args: cobra.NoArgs,
	}, runCopy)
	cmd.Flags().String("device", "", "target device id (empty = all devices)")
	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper, s *session, _ []string) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("copy: stdin is not valid UTF-8 text")
	}

	msg, err := s.SetContent(s.ctx, v.GetString("device"), string(data))
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	slog.Debug("copied", "bytes", len(data), "server", s.addr)
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	return nil
}

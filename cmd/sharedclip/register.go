package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharedclip/internal/registry"
)

func newRegisterCmd() *cobra.Command {
	return clientCommand(&cobra.Command{
		Use:   "register <device-id>",
		Short: "Register a device with an empty clipboard",
		Args:  cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, _ *viper.Viper, s *session, args []string) error {
		if err := s.Create(s.ctx, args[0]); err != nil {
			if errors.Is(err, registry.ErrAlreadyExists) {
				return fmt.Errorf("device %q is already registered", args[0])
			}
			return fmt.Errorf("register: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s registered %s\n", color.GreenString("✓"), args[0])
		return nil
	})
}

func newUnregisterCmd() *cobra.Command {
	return clientCommand(&cobra.Command{
		Use:     "unregister <device-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a device and its history",
		Args:    cobra.ExactArgs(1),
	}, func(cmd *cobra.Command, _ *viper.Viper, s *session, args []string) error {
		if err := s.Remove(s.ctx, args[0]); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return fmt.Errorf("device %q is not registered", args[0])
			}
			return fmt.Errorf("unregister: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s\n", color.GreenString("✓"), args[0])
		return nil
	})
}

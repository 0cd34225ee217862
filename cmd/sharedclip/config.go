package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharedclip/internal/logging"
)

const envPrefix = "SHAREDCLIP"

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and SHAREDCLIP_* env var prefix. Dashes in keys
// become underscores in env names: max-content-bytes reads
// SHAREDCLIP_MAX_CONTENT_BYTES.
//
// Precedence (lowest to highest): defaults, config file, env vars, flags.
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("sharedclip")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/sharedclip/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sharedclip"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("debug", false, "enable debug logging (same as --log-level debug)")
	f.String("log-format", "auto", "log format: auto|text|json")
	f.String("log-level", "info", "log level: debug|info|warn|error")
	f.String("log-file", "", "also append logs to this file")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addServerFlag adds the --server flag used by the client commands.
func addServerFlag(cmd *cobra.Command) {
	cmd.Flags().String("server", "localhost:8000", "sharedclip server address (host:port)")
	cmd.Flags().Duration("timeout", defaultRPCTimeout, "per-request timeout")
}

// loggingOptions reads the logging keys from v.
func loggingOptions(v *viper.Viper) logging.Options {
	level := logging.ParseLevel(v.GetString("log-level"))
	if v.GetBool("debug") {
		level = slog.LevelDebug
	}
	return logging.Options{
		Format: logging.ParseFormat(v.GetString("log-format")),
		Level:  level,
		File:   v.GetString("log-file"),
	}
}

// setupLogging configures slog from v. The caller closes the returned closer
// on exit.
func setupLogging(v *viper.Viper) (io.Closer, error) {
	return logging.Setup(loggingOptions(v))
}

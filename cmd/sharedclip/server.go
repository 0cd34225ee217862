package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/sharedclip/internal/discovery"
	"go.klb.dev/sharedclip/internal/grpcservice"
	"go.klb.dev/sharedclip/internal/httpapi"
	"go.klb.dev/sharedclip/internal/ipc"
	"go.klb.dev/sharedclip/internal/registry"
	"go.klb.dev/sharedclip/internal/server"
)

func newServerCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the shared clipboard service",
		Long: `Starts the sharedclip service. The JSON HTTP API and the gRPC API share
one TCP port.

Config file search order:
  /etc/sharedclip/sharedclip.toml
  $HOME/.config/sharedclip/sharedclip.toml
  path supplied via --config

Precedence (lowest to highest): defaults, config file, SHAREDCLIP_* env vars, flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runServer(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.String("addr", "0.0.0.0:8000", "TCP listen address")
	f.Int("max-content-bytes", registry.DefaultMaxContentBytes, "largest accepted clipboard value in bytes (0 = unlimited)")
	f.Bool("auto-register", true, "register unknown device ids on first write")
	f.Bool("ipc", true, "also serve gRPC on the local IPC socket")
	f.Bool("mdns", false, "advertise the service over mDNS")
	f.String("name", defaultName(), "service instance name for mDNS and the root endpoint")
	f.StringSlice("cors-origins", []string{"*"}, "origins allowed by CORS (empty disables CORS headers)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServer(ctx context.Context, v *viper.Viper) error {
	closer, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closer.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := v.GetString("addr")
	name := v.GetString("name")
	maxBytes := v.GetInt("max-content-bytes")
	if maxBytes < 0 {
		return fmt.Errorf("max-content-bytes must not be negative, got %d", maxBytes)
	}
	autoRegister := v.GetBool("auto-register")

	slog.Info("sharedclip server starting",
		"version", Version,
		"addr", addr,
		"name", name,
		"max_content_bytes", maxBytes,
		"auto_register", autoRegister,
	)

	reg := registry.New(registry.Options{
		RejectUnknown:   !autoRegister,
		MaxContentBytes: maxBytes,
	})

	api, err := httpapi.New(reg, httpapi.Config{
		Name:            name,
		Version:         Version,
		MaxContentBytes: maxBytes,
		CORSOrigins:     v.GetStringSlice("cors-origins"),
	})
	if err != nil {
		return fmt.Errorf("http api: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	if v.GetBool("mdns") {
		port := ln.Addr().(*net.TCPAddr).Port
		ad, err := discovery.Advertise(name, port, Version)
		if err != nil {
			slog.Warn("mdns unavailable", "err", err)
		} else {
			defer ad.Shutdown()
		}
	}

	var local []net.Listener
	if v.GetBool("ipc") {
		ipcLn, err := ipc.Listen()
		if err != nil {
			slog.Warn("IPC socket unavailable", "err", err)
		} else {
			local = append(local, ipcLn)
		}
	}

	return server.New(grpcservice.New(reg), api.Handler()).Serve(ctx, ln, local...)
}

func defaultName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return "sharedclip-" + h
	}
	return "sharedclip"
}

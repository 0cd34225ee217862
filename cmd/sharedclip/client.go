package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/sharedclip/internal/grpcservice"
	"go.klb.dev/sharedclip/internal/ipc"
)

const defaultRPCTimeout = 5 * time.Second

// session is a connected gRPC client plus the context every call uses.
type session struct {
	*grpcservice.Client
	ctx    context.Context
	cancel context.CancelFunc
	conn   *grpc.ClientConn
	addr   string
}

func (s *session) Close() error {
	s.cancel()
	return s.conn.Close()
}

// dialServer connects to the local IPC socket when a server is listening on
// it and no server address was configured by flag, env or config file.
// Otherwise it dials the server address.
func dialServer(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	addr := v.GetString("server")
	target := addr
	if !v.IsSet("server") && ipc.IsRunning() {
		addr = ipc.SocketPath()
		target = ipc.Target()
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)

	return &session{
		Client: grpcservice.NewClient(conn),
		ctx:    ctx,
		cancel: cancel,
		conn:   conn,
		addr:   addr,
	}, nil
}

// clientCommand builds a command that runs fn against a dialed session.
func clientCommand(cmd *cobra.Command, fn func(cmd *cobra.Command, v *viper.Viper, s *session, args []string) error) *cobra.Command {
	v := viper.New()
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) }
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		s, err := dialServer(cmd, v)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, v, s, args)
	}
	addServerFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

// Package server serves the gRPC API and the HTTP API on a single listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"go.klb.dev/sharedclip/internal/grpcservice"
)

const shutdownTimeout = 5 * time.Second

// Server multiplexes gRPC (HTTP/2 with application/grpc) and plain HTTP on
// one TCP port.
type Server struct {
	grpc   *grpc.Server
	http   *http.Server
	health *health.Server
}

// New builds a Server exposing svc over gRPC and handler over HTTP.
func New(svc grpcservice.SharedClipboardServer, handler http.Handler) *Server {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcservice.UnaryInterceptors()...))
	grpcservice.Register(gs, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{
		grpc:   gs,
		http:   &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		health: hs,
	}
}

// Serve accepts connections on ln until ctx is cancelled or a listener fails.
// Each listener in grpcOnly, such as the local IPC socket, serves gRPC
// without multiplexing. All listeners are closed before Serve returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener, grpcOnly ...net.Listener) error {
	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(grpcservice.ServiceName, healthpb.HealthCheckResponse_SERVING)
	slog.Info("listening", "addr", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.grpc.Serve(grpcL); err != nil && !isClosed(err) {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	for _, l := range grpcOnly {
		slog.Info("listening", "addr", l.Addr(), "protocol", "grpc")
		g.Go(func() error {
			if err := s.grpc.Serve(l); err != nil && !isClosed(err) {
				return fmt.Errorf("grpc %s: %w", l.Addr(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := s.http.Serve(httpL); err != nil && !isClosed(err) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := m.Serve(); err != nil && !isClosed(err) {
			return fmt.Errorf("mux: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		_ = ln.Close()
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) shutdown() {
	slog.Info("shutting down")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.Warn("http shutdown", "err", err)
	}

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, cmux.ErrListenerClosed)
}

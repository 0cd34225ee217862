// Package grpcservice implements the SharedClipboard gRPC server and client.
package grpcservice

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/sharedclip/internal/registry"
)

// Service implements SharedClipboardServer.
type Service struct {
	reg *registry.Registry
}

// New returns a Service backed by reg.
func New(reg *registry.Registry) *Service {
	return &Service{reg: reg}
}

// Create implements SharedClipboard.Create.
func (s *Service) Create(_ context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.reg.Create(req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Remove implements SharedClipboard.Remove.
func (s *Service) Remove(_ context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.reg.Remove(req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// DeviceCount implements SharedClipboard.DeviceCount.
func (s *Service) DeviceCount(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	return wrapperspb.Int64(int64(s.reg.Count())), nil
}

// HistoryCount implements SharedClipboard.HistoryCount.
func (s *Service) HistoryCount(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	n, err := s.reg.HistoryCount(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Int64(int64(n)), nil
}

// SetContent implements SharedClipboard.SetContent.
func (s *Service) SetContent(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	content, ok := fields["content"]
	if !ok {
		return nil, toStatus(registry.InvalidInput("content is required"))
	}
	if _, isString := content.GetKind().(*structpb.Value_StringValue); !isString {
		return nil, toStatus(registry.InvalidInput("content must be a string"))
	}

	var deviceID string
	if id, ok := fields["device_id"]; ok {
		if _, isString := id.GetKind().(*structpb.Value_StringValue); !isString {
			return nil, toStatus(registry.InvalidInput("device_id must be a string"))
		}
		deviceID = id.GetStringValue()
	}

	res, err := s.reg.SetContent(deviceID, content.GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if res.Scope == registry.ScopeDevice {
		return wrapperspb.String("Shared clipboard content set for " + res.DeviceID), nil
	}
	return wrapperspb.String("Shared clipboard content set for all devices"), nil
}

// Get implements SharedClipboard.Get.
func (s *Service) Get(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	snap, err := s.reg.Snapshot(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return snapshotToStruct(snap)
}

// Paste implements SharedClipboard.Paste, returning the current value as a
// raw text body.
func (s *Service) Paste(_ context.Context, req *wrapperspb.StringValue) (*httpbody.HttpBody, error) {
	snap, err := s.reg.Snapshot(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return &httpbody.HttpBody{
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(snap.Current),
	}, nil
}

// Devices implements SharedClipboard.Devices.
func (s *Service) Devices(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return devicesToStruct(s.reg.Devices())
}

// toStatus maps registry errors to gRPC status codes.
func toStatus(err error) error {
	switch registry.KindOf(err) {
	case registry.KindAlreadyExists:
		return status.Error(codes.AlreadyExists, err.Error())
	case registry.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case registry.KindInvalidInput:
		return status.Error(codes.InvalidArgument, err.Error())
	case registry.KindTooLarge:
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}

// fromStatus maps a gRPC error back to a registry error where possible.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var kind registry.Kind
	switch st.Code() {
	case codes.AlreadyExists:
		kind = registry.KindAlreadyExists
	case codes.NotFound:
		kind = registry.KindNotFound
	case codes.InvalidArgument:
		kind = registry.KindInvalidInput
	case codes.ResourceExhausted:
		kind = registry.KindTooLarge
	default:
		return err
	}
	return &remoteError{st: st, err: &registry.Error{Kind: kind}}
}

// remoteError keeps the server's message and status while unwrapping to the
// matching registry error.
type remoteError struct {
	st  *status.Status
	err *registry.Error
}

func (e *remoteError) Error() string              { return e.st.Message() }
func (e *remoteError) Unwrap() error              { return e.err }
func (e *remoteError) GRPCStatus() *status.Status { return e.st }

// UnaryInterceptors returns the interceptor chain the server installs:
// panic recovery outermost, then request logging.
func UnaryInterceptors() []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{recoverUnary, logUnary}
}

func recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("rpc panic", "method", info.FullMethod, "panic", v, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Info("rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
		"peer", addrFromCtx(ctx),
	)
	return resp, err
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

func snapshotToStruct(snap registry.Snapshot) (*structpb.Struct, error) {
	hist := make([]any, len(snap.History))
	for i, h := range snap.History {
		hist[i] = h
	}
	m := map[string]any{
		"device_id":   snap.DeviceID,
		"has_current": snap.HasCurrent,
		"history":     hist,
	}
	if snap.HasCurrent {
		m["current"] = snap.Current
		m["updated_at"] = snap.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode snapshot")
	}
	return st, nil
}

func devicesToStruct(devs []registry.DeviceInfo) (*structpb.Struct, error) {
	rows := make([]any, len(devs))
	for i, d := range devs {
		row := map[string]any{
			"device_id":     d.DeviceID,
			"count":         d.HistoryCount,
			"has_current":   d.HasCurrent,
			"registered_at": d.RegisteredAt.UTC().Format(time.RFC3339Nano),
		}
		if !d.UpdatedAt.IsZero() {
			row["updated_at"] = d.UpdatedAt.UTC().Format(time.RFC3339Nano)
		}
		rows[i] = row
	}
	st, err := structpb.NewStruct(map[string]any{"devices": rows})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode devices")
	}
	return st, nil
}

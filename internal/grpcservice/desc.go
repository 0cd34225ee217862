package grpcservice

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "sharedclip.v1.SharedClipboard"

// SharedClipboardServer is the server API for the SharedClipboard service.
// Requests and responses are protobuf well-known types, so no generated
// code is needed on either side.
type SharedClipboardServer interface {
	Create(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	Remove(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	DeviceCount(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	HistoryCount(context.Context, *wrapperspb.StringValue) (*wrapperspb.Int64Value, error)
	// SetContent takes {"device_id": string (optional), "content": string}.
	SetContent(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Get(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Paste(context.Context, *wrapperspb.StringValue) (*httpbody.HttpBody, error)
	Devices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv SharedClipboardServer) {
	s.RegisterService(&serviceDesc, srv)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SharedClipboardServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Create", newString, SharedClipboardServer.Create),
		unary("Remove", newString, SharedClipboardServer.Remove),
		unary("DeviceCount", newEmpty, SharedClipboardServer.DeviceCount),
		unary("HistoryCount", newString, SharedClipboardServer.HistoryCount),
		unary("SetContent", newStruct, SharedClipboardServer.SetContent),
		unary("Get", newString, SharedClipboardServer.Get),
		unary("Paste", newString, SharedClipboardServer.Paste),
		unary("Devices", newEmpty, SharedClipboardServer.Devices),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sharedclip/v1/sharedclip.proto",
}

func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newStruct() *structpb.Struct        { return new(structpb.Struct) }

// unary builds the MethodDesc that decodes a Req, runs it through the
// server's interceptor chain, and dispatches to call.
func unary[Req, Resp any](
	name string,
	newReq func() Req,
	call func(SharedClipboardServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(SharedClipboardServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

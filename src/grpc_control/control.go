package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control API is small enough to describe by hand: requests and replies
// are protobuf well-known types, so no generated code is needed.

const ServiceName = "papertrader.control.v1.Control"

type ControlServer interface {
	ListFeeds(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StartFeed(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	StopFeed(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	LedgerStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListFeeds", Handler: unary("ListFeeds", newEmpty, ControlServer.ListFeeds)},
		{MethodName: "StartFeed", Handler: unary("StartFeed", newString, ControlServer.StartFeed)},
		{MethodName: "StopFeed", Handler: unary("StopFeed", newString, ControlServer.StopFeed)},
		{MethodName: "LedgerStats", Handler: unary("LedgerStats", newEmpty, ControlServer.LedgerStats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "paper-trader/control.proto",
}

func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }

// unary adapts a typed ControlServer method to a grpc.MethodHandler.
func unary[Req proto.Message](method string, newReq func() Req, call func(ControlServer, context.Context, Req) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) invoke(ctx context.Context, method string, in proto.Message) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) ListFeeds(ctx context.Context) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListFeeds", &emptypb.Empty{})
}

func (c *ControlClient) StartFeed(ctx context.Context, name string) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartFeed", wrapperspb.String(name))
}

func (c *ControlClient) StopFeed(ctx context.Context, name string) (*structpb.Struct, error) {
	return c.invoke(ctx, "StopFeed", wrapperspb.String(name))
}

func (c *ControlClient) LedgerStats(ctx context.Context) (*structpb.Struct, error) {
	return c.invoke(ctx, "LedgerStats", &emptypb.Empty{})
}

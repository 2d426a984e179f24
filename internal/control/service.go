// Package control exposes a running session over gRPC. Messages are the
// well-known google.protobuf Struct and Empty types, so the service needs
// no generated code.
package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "orrery.control.v1.SceneControl"

// Full method names.
const (
	MethodPick     = "/" + ServiceName + "/Pick"
	MethodHover    = "/" + ServiceName + "/Hover"
	MethodClose    = "/" + ServiceName + "/Close"
	MethodSetRates = "/" + ServiceName + "/SetRates"
	MethodResize   = "/" + ServiceName + "/Resize"
	MethodAddBody  = "/" + ServiceName + "/AddBody"
	MethodSnapshot = "/" + ServiceName + "/Snapshot"
	MethodInfo     = "/" + ServiceName + "/Info"
)

// SceneControlServer is the server API for the SceneControl service.
type SceneControlServer interface {
	// Pick takes {x, y} in pixels, or {body} to focus by name.
	Pick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Hover takes {x, y} in pixels.
	Hover(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Close(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// SetRates takes any of {orbital, rotation, light}.
	SetRates(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// Resize takes {width, height}.
	Resize(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// AddBody takes one registry body record.
	AddBody(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Info takes {body}.
	Info(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterSceneControlServer registers srv on s.
func RegisterSceneControlServer(s grpc.ServiceRegistrar, srv SceneControlServer) {
	s.RegisterService(&SceneControlServiceDesc, srv)
}

// SceneControlServiceDesc is the grpc.ServiceDesc for SceneControl.
var SceneControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SceneControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Pick", Handler: structHandler(MethodPick, SceneControlServer.Pick)},
		{MethodName: "Hover", Handler: structHandler(MethodHover, SceneControlServer.Hover)},
		{MethodName: "Close", Handler: emptyHandler(MethodClose, SceneControlServer.Close)},
		{MethodName: "SetRates", Handler: structHandler(MethodSetRates, SceneControlServer.SetRates)},
		{MethodName: "Resize", Handler: structHandler(MethodResize, SceneControlServer.Resize)},
		{MethodName: "AddBody", Handler: structHandler(MethodAddBody, SceneControlServer.AddBody)},
		{MethodName: "Snapshot", Handler: emptyHandler(MethodSnapshot, SceneControlServer.Snapshot)},
		{MethodName: "Info", Handler: structHandler(MethodInfo, SceneControlServer.Info)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orrery/control/v1/scene_control.proto",
}

type methodHandler = grpc.MethodHandler

func structHandler[Resp any](fullMethod string, call func(SceneControlServer, context.Context, *structpb.Struct) (Resp, error)) methodHandler {
	return unaryHandler(fullMethod, func() *structpb.Struct { return new(structpb.Struct) }, call)
}

func emptyHandler[Resp any](fullMethod string, call func(SceneControlServer, context.Context, *emptypb.Empty) (Resp, error)) methodHandler {
	return unaryHandler(fullMethod, func() *emptypb.Empty { return new(emptypb.Empty) }, call)
}

// unaryHandler mirrors the handlers protoc-gen-go-grpc emits.
func unaryHandler[Req, Resp any](fullMethod string, newReq func() Req, call func(SceneControlServer, context.Context, Req) (Resp, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SceneControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SceneControlServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SceneControlClient is the client API for the SceneControl service.
type SceneControlClient struct {
	cc grpc.ClientConnInterface
}

// NewSceneControlClient wraps a connection.
func NewSceneControlClient(cc grpc.ClientConnInterface) *SceneControlClient {
	return &SceneControlClient{cc: cc}
}

func (c *SceneControlClient) Pick(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, MethodPick, in, out, opts...)
}

func (c *SceneControlClient) Hover(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.cc.Invoke(ctx, MethodHover, in, out, opts...)
}

func (c *SceneControlClient) Close(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, MethodClose, in, out, opts...)
}

func (c *SceneControlClient) SetRates(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.cc.Invoke(ctx, MethodSetRates, in, out, opts...)
}

func (c *SceneControlClient) Resize(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.cc.Invoke(ctx, MethodResize, in, out, opts...)
}

func (c *SceneControlClient) AddBody(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.cc.Invoke(ctx, MethodAddBody, in, out, opts...)
}

func (c *SceneControlClient) Snapshot(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, MethodSnapshot, in, out, opts...)
}

func (c *SceneControlClient) Info(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, MethodInfo, in, out, opts...)
}

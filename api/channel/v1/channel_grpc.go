package pb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	emptypb "google.golang.org/protobuf/types/known/emptypb"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

const _ = grpc.SupportPackageIsVersion9

const (
	MethodChannel_Invoke_FullMethodName = "/rumbridge.v1.MethodChannel/Invoke"
	MethodChannel_Listen_FullMethodName = "/rumbridge.v1.MethodChannel/Listen"
)

// MethodChannelClient carries method calls from the UI side to the bridge and
// receives the bridge's pushes. Envelopes are google.protobuf.Struct values,
// see envelope.go for their shape.
type MethodChannelClient interface {
	Invoke(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Listen(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type methodChannelClient struct {
	cc grpc.ClientConnInterface
}

func NewMethodChannelClient(cc grpc.ClientConnInterface) MethodChannelClient {
	return &methodChannelClient{cc}
}

func (c *methodChannelClient) Invoke(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, MethodChannel_Invoke_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *methodChannelClient) Listen(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	stream, err := c.cc.NewStream(ctx, &MethodChannel_ServiceDesc.Streams[0], MethodChannel_Listen_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type MethodChannel_ListenClient = grpc.ServerStreamingClient[structpb.Struct]

type MethodChannelServer interface {
	Invoke(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Listen(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	mustEmbedUnimplementedMethodChannelServer()
}

type UnimplementedMethodChannelServer struct{}

func (UnimplementedMethodChannelServer) Invoke(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Invoke not implemented")
}
func (UnimplementedMethodChannelServer) Listen(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Errorf(codes.Unimplemented, "method Listen not implemented")
}
func (UnimplementedMethodChannelServer) mustEmbedUnimplementedMethodChannelServer() {}
func (UnimplementedMethodChannelServer) testEmbeddedByValue()                       {}

type UnsafeMethodChannelServer interface {
	mustEmbedUnimplementedMethodChannelServer()
}

func RegisterMethodChannelServer(s grpc.ServiceRegistrar, srv MethodChannelServer) {

	if t, ok := srv.(interface{ testEmbeddedByValue() }); ok {
		t.testEmbeddedByValue()
	}
	s.RegisterService(&MethodChannel_ServiceDesc, srv)
}

func _MethodChannel_Invoke_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MethodChannelServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodChannel_Invoke_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MethodChannelServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _MethodChannel_Listen_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(MethodChannelServer).Listen(m, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

type MethodChannel_ListenServer = grpc.ServerStreamingServer[structpb.Struct]

var MethodChannel_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "rumbridge.v1.MethodChannel",
	HandlerType: (*MethodChannelServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Invoke",
			Handler:    _MethodChannel_Invoke_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Listen",
			Handler:       _MethodChannel_Listen_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "v1/channel.proto",
}

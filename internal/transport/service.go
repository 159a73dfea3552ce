package transport

import (
	"context"
	"log/slog"

	pb "rumbridge/api/channel/v1"
	"rumbridge/internal/channel"
	"rumbridge/internal/plugin"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type methodChannel struct {
	pb.UnimplementedMethodChannelServer

	plugin  *plugin.Plugin
	buffer  int
	closing <-chan struct{}
	log     *slog.Logger
}

func (m *methodChannel) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	method, args, err := pb.ParseCall(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res := m.plugin.HandleMethodCall(ctx, channel.MethodCall{Method: method, Arguments: args})
	var out *structpb.Struct
	if res.OK() {
		out, err = pb.NewSuccess(res.Value)
	} else {
		out, err = pb.NewFailure(&pb.Failure{Code: res.Err.Code, Message: res.Err.Message, Details: res.Err.Details})
	}
	if err != nil {
		m.log.Error("encode response", "method", method, "err", err)
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// Listen attaches the caller as the UI-side channel for as long as the stream
// stays open.
func (m *methodChannel) Listen(_ *emptypb.Empty, stream pb.MethodChannel_ListenServer) error {
	h := m.plugin.OnAttached(m.buffer)
	defer m.plugin.OnDetached(h)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.closing:
			return status.Error(codes.Unavailable, "server shutting down")
		case <-h.Done():
			return status.Error(codes.Aborted, "superseded by a newer listener")
		case n := <-h.Notifications():
			msg, err := pb.NewCall(n.Method, n.Arguments)
			if err != nil {
				m.log.Warn("drop unencodable notification", "method", n.Method, "err", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

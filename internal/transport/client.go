package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	pb "rumbridge/api/channel/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Client talks to a running bridge from the UI side.
type Client struct {
	conn *grpc.ClientConn
	rpc  pb.MethodChannelClient
}

func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: cc, rpc: pb.NewMethodChannelClient(cc)}, nil
}

// Invoke returns the success value. A failed call comes back as a
// *pb.Failure error.
func (c *Client) Invoke(ctx context.Context, method string, args any) (any, error) {
	req, err := pb.NewCall(method, args)
	if err != nil {
		return nil, err
	}
	resp, err := c.rpc.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	return pb.ParseResponse(resp)
}

// Listen calls fn for every pushed notification until the stream ends or fn
// returns an error. A cleanly closed stream returns nil.
func (c *Client) Listen(ctx context.Context, fn func(method string, args any) error) error {
	stream, err := c.rpc.Listen(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		method, args, err := pb.ParseCall(msg)
		if err != nil {
			return err
		}
		if err := fn(method, args); err != nil {
			return err
		}
	}
}

func (c *Client) Close() error { return c.conn.Close() }

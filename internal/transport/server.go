package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	pb "rumbridge/api/channel/v1"
	"rumbridge/internal/logging"
	"rumbridge/internal/plugin"

	"google.golang.org/grpc"
)

type Option func(*Server)

// WithCrashReporter installs the crash-capture interceptor in front of
// Invoke.
func WithCrashReporter(r CrashReporter) Option {
	return func(s *Server) { s.crash = r }
}

// WithNotifyBuffer sets how many outbound pushes may wait for a slow
// listener before further pushes are dropped.
func WithNotifyBuffer(n int) Option {
	return func(s *Server) { s.buffer = n }
}

type Server struct {
	grpc   *grpc.Server
	lis    net.Listener
	log    *slog.Logger
	crash  CrashReporter
	buffer int

	closing  chan struct{}
	stopOnce sync.Once
}

func StartServer(port int, p *plugin.Plugin, opts ...Option) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen grpc: %w", err)
	}
	return NewServer(lis, p, opts...), nil
}

// NewServer registers the method channel on lis without serving yet.
func NewServer(lis net.Listener, p *plugin.Plugin, opts ...Option) *Server {
	s := &Server{
		lis:     lis,
		log:     logging.For("transport"),
		buffer:  16,
		closing: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	var sopts []grpc.ServerOption
	if s.crash != nil {
		sopts = append(sopts, grpc.ChainUnaryInterceptor(CrashCapture(s.crash)))
	}
	s.grpc = grpc.NewServer(sopts...)
	pb.RegisterMethodChannelServer(s.grpc, &methodChannel{
		plugin:  p,
		buffer:  s.buffer,
		closing: s.closing,
		log:     s.log,
	})
	return s
}

func (s *Server) Addr() net.Addr { return s.lis.Addr() }

func (s *Server) Serve() error {
	s.log.Info("grpc listening", "addr", s.lis.Addr().String())
	return s.grpc.Serve(s.lis)
}

// Stop ends open listeners and drains in-flight calls. When ctx expires
// first, remaining calls are cut off.
func (s *Server) Stop(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.closing) })
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("graceful stop timed out")
		s.grpc.Stop()
		<-done
	}
}

package transport

import (
	"context"
	"runtime/debug"

	"google.golang.org/grpc"
)

// CrashReporter is satisfied by *rum.Agent.
type CrashReporter interface {
	ReportPanic(v any, stack []byte)
}

// CrashCapture reports a panicking handler and then lets the panic continue,
// so the process still terminates.
func CrashCapture(r CrashReporter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		defer func() {
			if v := recover(); v != nil {
				r.ReportPanic(v, debug.Stack())
				panic(v)
			}
		}()
		return handler(ctx, req)
	}
}

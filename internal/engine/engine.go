package engine

import (
	"context"
	"net"
	"sync"
	"time"

	"rumbridge/internal/logging"
	"rumbridge/internal/rum"
	"rumbridge/internal/telemetry"
	"rumbridge/internal/transport"
)

const shutdownTimeout = 10 * time.Second

type Engine struct {
	transport *transport.Server
	agent     *rum.Agent
	metrics   *telemetry.Server
	poller    *rum.Poller
}

// Addr is the gRPC listen address.
func (e *Engine) Addr() net.Addr { return e.transport.Addr() }

// Run serves until ctx is cancelled, then stops the transport, flushes the
// agent and closes the exporters.
func (e *Engine) Run(ctx context.Context) error {
	log := logging.For("engine")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if e.poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.poller.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		e.transport.Stop(sctx)
		if err := e.metrics.Shutdown(sctx); err != nil {
			log.Warn("metrics shutdown", "err", err)
		}
		if err := e.agent.Close(); err != nil {
			log.Warn("agent close", "err", err)
		}
		log.Info("stopped")
	}()

	err := e.transport.Serve()
	cancel()
	wg.Wait()
	return err
}

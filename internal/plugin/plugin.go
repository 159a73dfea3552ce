// Package plugin owns the lifecycle of the UI-side channel: it hands inbound
// calls to the dispatcher and pushes outbound notifications through whichever
// handle is currently attached.
package plugin

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"rumbridge/internal/channel"
	"rumbridge/internal/logging"
	"rumbridge/internal/telemetry"
)

// MethodSetNetworkTraceConfig is the only method pushed to the UI side.
const MethodSetNetworkTraceConfig = "setNetworkTraceConfig"

// Handler answers inbound calls. *dispatch.Dispatcher implements it.
type Handler interface {
	Handle(ctx context.Context, call channel.MethodCall) channel.Result
}

type Plugin struct {
	handler Handler
	log     *slog.Logger

	mu     sync.Mutex
	handle *channel.Handle
}

func New(h Handler) *Plugin {
	return &Plugin{handler: h, log: logging.For("plugin")}
}

// OnAttached creates the channel handle. A handle that was still attached is
// closed and replaced.
func (p *Plugin) OnAttached(buffer int) *channel.Handle {
	h := channel.NewHandle(buffer)

	p.mu.Lock()
	old := p.handle
	p.handle = h
	p.mu.Unlock()

	if old != nil {
		old.Close()
		p.log.Info("channel superseded")
	}
	telemetry.ChannelAttached.Set(1)
	p.log.Info("channel attached")
	return h
}

// OnDetached clears h if it is still the attached handle, and closes it
// either way.
func (p *Plugin) OnDetached(h *channel.Handle) {
	if h == nil {
		return
	}
	h.Close()

	p.mu.Lock()
	current := p.handle == h
	if current {
		p.handle = nil
	}
	p.mu.Unlock()

	if current {
		telemetry.ChannelAttached.Set(0)
		p.log.Info("channel detached")
	}
}

func (p *Plugin) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

func (p *Plugin) HandleMethodCall(ctx context.Context, call channel.MethodCall) channel.Result {
	return p.handler.Handle(ctx, call)
}

// SetNetworkTraceConfig pushes cfg to the UI side. Nothing is sent when cfg
// is nil or no channel is attached. A failed push is logged and counted, never
// retried.
func (p *Plugin) SetNetworkTraceConfig(cfg map[string]any) {
	if cfg == nil {
		return
	}
	p.mu.Lock()
	h := p.handle
	p.mu.Unlock()
	if h == nil {
		telemetry.Notifications.WithLabelValues(MethodSetNetworkTraceConfig, "detached").Inc()
		p.log.Debug("push skipped, no channel attached", "method", MethodSetNetworkTraceConfig)
		return
	}

	err := h.Notify(channel.Notification{Method: MethodSetNetworkTraceConfig, Arguments: cfg})
	switch {
	case err == nil:
		telemetry.Notifications.WithLabelValues(MethodSetNetworkTraceConfig, "sent").Inc()
	case errors.Is(err, channel.ErrFull):
		telemetry.Notifications.WithLabelValues(MethodSetNetworkTraceConfig, "dropped").Inc()
		p.log.Warn("push dropped", "method", MethodSetNetworkTraceConfig, "err", err)
	default:
		telemetry.Notifications.WithLabelValues(MethodSetNetworkTraceConfig, "failed").Inc()
		p.log.Warn("push failed", "method", MethodSetNetworkTraceConfig, "err", err)
	}
}

// Package dispatch routes decoded channel calls to the RUM SDK.
package dispatch

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"rumbridge/internal/channel"
	"rumbridge/internal/logging"
	"rumbridge/internal/request"
	"rumbridge/internal/rum"
	"rumbridge/internal/telemetry"
)

// Spawner runs fn on a new goroutine.
type Spawner func(fn func())

type Option func(*Dispatcher)

// WithSpawner sets where triggerCrash2 runs its crash. Pass the SDK's
// crash-capturing Go so the panic is reported before the process dies.
func WithSpawner(s Spawner) Option {
	return func(d *Dispatcher) { d.spawn = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// Dispatcher is stateless; Handle is safe for concurrent use.
type Dispatcher struct {
	sdk   rum.SDK
	spawn Spawner
	log   *slog.Logger
}

func New(sdk rum.SDK, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sdk:   sdk,
		spawn: func(fn func()) { go fn() },
		log:   logging.For("dispatch"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Handle decodes call, forwards it to the SDK and always returns a Result,
// except for triggerCrash, which panics on the calling goroutine.
func (d *Dispatcher) Handle(ctx context.Context, call channel.MethodCall) channel.Result {
	start := time.Now()
	label := metricLabel(call.Method)

	if err := ctx.Err(); err != nil {
		d.observe(label, telemetry.OutcomeCancelled, start)
		return channel.Failure(channel.CodeCancelled, err.Error(), nil)
	}

	req, err := request.Decode(call.Method, call.Arguments)
	if err != nil {
		d.log.Warn("invalid arguments", "method", call.Method, "err", err)
		d.observe(label, telemetry.OutcomeInvalid, start)
		return channel.Failure(channel.CodeInvalidArgument, err.Error(), nil)
	}

	value, err := d.execute(req)
	if err != nil {
		d.log.Error("sdk call failed", "method", call.Method, "err", err)
		d.observe(label, telemetry.OutcomeSDKError, start)
		return channel.Failure(channel.CodeSDKError, err.Error(), nil)
	}

	outcome := telemetry.OutcomeOK
	if _, ok := req.(request.Unknown); ok {
		outcome = telemetry.OutcomeUnrecognized
		d.log.Debug("unrecognized method", "method", call.Method)
	}
	d.observe(label, outcome, start)
	return channel.Success(value)
}

func (d *Dispatcher) execute(req request.Request) (any, error) {
	switch r := req.(type) {
	case request.ReportCrash:
		return ok(d.sdk.ReportException(rum.Exception{
			ErrorValue: r.ErrorValue,
			Reason:     r.Reason,
			Stacktrace: r.Stacktrace,
		}))
	case request.ReportView:
		v := rum.View{
			ViewID:    r.ViewID,
			LoadTime:  r.LoadTime,
			ModelFlag: r.Model == 1,
			Name:      r.Name,
			Method:    r.NavMethod,
		}
		if r.Time > 0 {
			v.StartedAt = time.UnixMilli(r.Time)
		}
		return ok(d.sdk.ReportView(v))
	case request.SetCustomException:
		return ok(d.sdk.ReportCustomException(rum.CustomException{
			ExceptionType: r.ExceptionType,
			CausedBy:      r.CausedBy,
			ErrorDump:     r.ErrorDump,
		}))
	case request.SetCustomEvent:
		return ok(d.sdk.SetCustomEvent(rum.CustomEvent{
			Name:       r.Name,
			Value:      formatValue(r.Value),
			Group:      r.Group,
			Snapshots:  r.Snapshots,
			Attributes: r.Attributes,
		}))
	case request.SetCustomLog:
		return ok(d.sdk.SetCustomLog(rum.CustomLog{
			LogInfo:    r.LogInfo,
			Name:       r.Name,
			Level:      r.Level,
			Snapshots:  r.Snapshots,
			Attributes: r.Attributes,
		}))
	case request.SetUserID:
		return ok(d.sdk.SetUserName(r.UserID))
	case request.UserExtraInfo:
		if r.Merge {
			return ok(d.sdk.AddUserExtraInfo(r.Info))
		}
		return ok(d.sdk.SetUserExtraInfo(r.Info))
	case request.ExtraInfo:
		if r.Merge {
			return ok(d.sdk.AddExtraInfo(r.Info))
		}
		return ok(d.sdk.SetExtraInfo(r.Info))
	case request.ReportNetwork:
		res := rum.Resource{
			URL:              r.RequestURL,
			Method:           r.HTTPMethod,
			ConnectTimeMs:    r.ConnectTimeMs,
			ResponseTimeMs:   r.ResponseTimeMs,
			ResourceType:     r.ResourceType,
			ResponseDataSize: r.ResponseDataSize,
			ErrorMessage:     r.ErrorMessage,
			RequestHeaders:   r.HTTPRequestHeader,
			ResponseHeaders:  r.HTTPResponseHeader,
		}
		if r.ErrorCode != nil {
			res.ErrorCode = strconv.FormatInt(*r.ErrorCode, 10)
		}
		return ok(d.sdk.ReportResource(res))
	case request.GetNetworkTraceConfig:
		return d.sdk.NetworkTraceConfig()
	case request.GetDeviceID:
		return d.sdk.DeviceID()
	case request.TriggerCrash:
		if !r.Background {
			crash()
		}
		d.spawn(crash)
		return channel.SuccessMarker, nil
	default:
		return channel.SuccessMarker, nil
	}
}

func ok(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return channel.SuccessMarker, nil
}

// formatValue renders a custom event value in its shortest decimal form,
// "0" when the caller sent none.
func formatValue(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

type crashTarget struct{ n int }

var crashSink int

// crash dereferences a nil pointer.
func crash() {
	var p *crashTarget
	crashSink = p.n
}

func metricLabel(method string) string {
	if request.Known(method) {
		return method
	}
	return "unknown"
}

func (d *Dispatcher) observe(method, outcome string, start time.Time) {
	telemetry.CallsTotal.WithLabelValues(method, outcome).Inc()
	telemetry.CallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for CallsTotal.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid_argument"
	OutcomeSDKError     = "sdk_error"
	OutcomeCancelled    = "cancelled"
	OutcomeUnrecognized = "unrecognized"
)

var (
	CallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rumbridge_calls_total",
		Help: "Channel calls handled, by method and outcome.",
	}, []string{"method", "outcome"})

	CallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rumbridge_call_duration_seconds",
		Help:    "Time spent dispatching a channel call.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
	}, []string{"method"})

	EventsExported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rumbridge_events_exported_total",
		Help: "Events handed to every exporter, by event type.",
	}, []string{"type"})

	EventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rumbridge_events_dropped_total",
		Help: "Events dropped before export, by reason.",
	}, []string{"reason"})

	ExportErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rumbridge_export_errors_total",
		Help: "Exporter failures, by exporter.",
	}, []string{"exporter"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rumbridge_notifications_total",
		Help: "Pushes towards the UI side, by method and outcome.",
	}, []string{"method", "outcome"})

	ChannelAttached = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rumbridge_channel_attached",
		Help: "1 while a UI-side channel is attached.",
	})
)

func init() {
	prometheus.MustRegister(CallsTotal, CallDuration, EventsExported, EventsDropped, ExportErrors, Notifications, ChannelAttached)
}

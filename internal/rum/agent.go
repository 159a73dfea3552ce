package rum

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"rumbridge/exporter"
	"rumbridge/internal/logging"
	"rumbridge/internal/platform/ratelimiter"
	"rumbridge/internal/telemetry"
)

var ErrClosed = errors.New("rum: agent closed")

// Exporter is a configured exporter.Adapter and the name it was registered
// under.
type Exporter struct {
	Name string
	exporter.Adapter
}

type Options struct {
	AppID         string
	ConfigAddress string
	DataDir       string

	QueueHint int64
	BatchSize int64

	Exporters []Exporter
	Limiter   *ratelimiter.KeyLimiter

	NetworkTrace map[string]any
	// DeviceContext overrides the host facts collected through gopsutil.
	DeviceContext map[string]string
	Now           func() time.Time
}

type Agent struct {
	appID     string
	deviceID  string
	device    map[string]string
	batch     int64
	now       func() time.Time
	limiter   *ratelimiter.KeyLimiter
	exporters []Exporter
	log       *slog.Logger

	q        *queue.Queue
	exportMu sync.Mutex
	wg       sync.WaitGroup
	started  atomic.Bool
	closed   atomic.Bool

	userID    atomic.Value // string
	userExtra *metadata
	extra     *metadata

	traceMu   sync.RWMutex
	trace     map[string]any
	listeners []func(map[string]any)
}

var _ SDK = (*Agent)(nil)

func NewAgent(opts Options) (*Agent, error) {
	id, err := loadDeviceID(opts.DataDir)
	if err != nil {
		return nil, err
	}
	if opts.QueueHint <= 0 {
		opts.QueueHint = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DeviceContext == nil {
		opts.DeviceContext = collectDeviceContext()
	}
	a := &Agent{
		appID:     opts.AppID,
		deviceID:  id,
		device:    opts.DeviceContext,
		batch:     opts.BatchSize,
		now:       opts.Now,
		limiter:   opts.Limiter,
		exporters: opts.Exporters,
		log:       logging.For("rum"),
		q:         queue.New(opts.QueueHint),
		userExtra: newMetadata(),
		extra:     newMetadata(),
		trace:     maps.Clone(opts.NetworkTrace),
	}
	a.userID.Store("")
	if a.trace == nil {
		a.trace = map[string]any{}
	}
	a.log.Info("agent ready", "app_id", opts.AppID, "config_address", opts.ConfigAddress, "device_id", id, "exporters", len(opts.Exporters))
	return a, nil
}

// Start launches the export worker. Events recorded before Start wait in
// the queue.
func (a *Agent) Start() {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	a.wg.Add(1)
	go a.run()
}

func (a *Agent) run() {
	defer a.wg.Done()
	for {
		items, err := a.q.Get(a.batch)
		if err != nil {
			return // disposed
		}
		a.export(items)
	}
}

// Close exports whatever is still queued, then closes every exporter.
func (a *Agent) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	rest := a.q.Dispose()
	a.wg.Wait()
	a.export(rest)

	var errs []error
	for _, ex := range a.exporters {
		if err := ex.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter %s: %w", ex.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Flush synchronously exports the events currently queued.
func (a *Agent) Flush() {
	n := a.q.Len()
	if n < 1 {
		return
	}
	items, err := a.q.Poll(n, time.Millisecond)
	if err != nil {
		return // the worker got there first, or the queue is gone
	}
	a.export(items)
}

// Healthy reports whether events can still be recorded.
func (a *Agent) Healthy() error {
	if a.closed.Load() || a.q.Disposed() {
		return ErrClosed
	}
	if !a.started.Load() {
		return errors.New("rum: export worker not started")
	}
	return nil
}

func (a *Agent) export(items []interface{}) {
	if len(items) == 0 {
		return
	}
	a.exportMu.Lock()
	defer a.exportMu.Unlock()
	for _, it := range items {
		ev, ok := it.(*exporter.Event)
		if !ok {
			continue
		}
		for _, ex := range a.exporters {
			if err := ex.Export(ev); err != nil {
				telemetry.ExportErrors.WithLabelValues(ex.Name).Inc()
				a.log.Warn("export failed", "exporter", ex.Name, "type", ev.Type, "err", err)
			}
		}
		telemetry.EventsExported.WithLabelValues(ev.Type).Inc()
	}
}

func (a *Agent) record(ev *exporter.Event) error {
	if !a.limiter.Allow(ev.Type, ev.Timestamp) {
		telemetry.EventsDropped.WithLabelValues("rate_limited").Inc()
		return nil
	}
	if err := a.q.Put(ev); err != nil {
		telemetry.EventsDropped.WithLabelValues("closed").Inc()
		return ErrClosed
	}
	return nil
}

func (a *Agent) newEvent(typ, name string, attrs map[string]any) *exporter.Event {
	return &exporter.Event{
		Type:       typ,
		Name:       name,
		Timestamp:  a.now().UTC(),
		AppID:      a.appID,
		DeviceID:   a.deviceID,
		UserID:     a.userID.Load().(string),
		UserExtra:  a.userExtra.snapshot(),
		Extra:      a.extra.snapshot(),
		Device:     a.device,
		Attributes: attrs,
	}
}

/*──────── SDK ───────*/

func (a *Agent) ReportException(e Exception) error {
	return a.record(a.newEvent(TypeCrash, e.ErrorValue, map[string]any{
		"reason":     e.Reason,
		"stacktrace": e.Stacktrace,
		"source":     "flutter",
	}))
}

func (a *Agent) ReportView(v View) error {
	attrs := map[string]any{
		"view_id":      v.ViewID,
		"load_time_ms": v.LoadTime,
		"model_flag":   v.ModelFlag,
		"method":       v.Method,
	}
	if !v.StartedAt.IsZero() {
		attrs["started_at"] = v.StartedAt.UTC()
	}
	return a.record(a.newEvent(TypeView, v.Name, attrs))
}

func (a *Agent) ReportCustomException(e CustomException) error {
	return a.record(a.newEvent(TypeCustomException, e.ExceptionType, map[string]any{
		"caused_by":  e.CausedBy,
		"error_dump": e.ErrorDump,
	}))
}

func (a *Agent) SetCustomEvent(e CustomEvent) error {
	return a.record(a.newEvent(TypeCustomEvent, e.Name, map[string]any{
		"value":      e.Value,
		"group":      e.Group,
		"snapshots":  e.Snapshots,
		"attributes": e.Attributes,
	}))
}

func (a *Agent) SetCustomLog(l CustomLog) error {
	return a.record(a.newEvent(TypeCustomLog, l.Name, map[string]any{
		"log_info":   l.LogInfo,
		"level":      l.Level,
		"snapshots":  l.Snapshots,
		"attributes": l.Attributes,
	}))
}

func (a *Agent) SetUserName(id string) error {
	a.userID.Store(id)
	return nil
}

func (a *Agent) SetUserExtraInfo(info map[string]any) error {
	a.userExtra.replace(info)
	return nil
}

func (a *Agent) AddUserExtraInfo(info map[string]any) error {
	a.userExtra.merge(info)
	return nil
}

func (a *Agent) SetExtraInfo(info map[string]any) error {
	a.extra.replace(info)
	return nil
}

func (a *Agent) AddExtraInfo(info map[string]any) error {
	a.extra.merge(info)
	return nil
}

func (a *Agent) ReportResource(r Resource) error {
	return a.record(a.newEvent(TypeResource, r.URL, map[string]any{
		"method":             r.Method,
		"connect_time_ms":    r.ConnectTimeMs,
		"response_time_ms":   r.ResponseTimeMs,
		"resource_type":      r.ResourceType,
		"response_data_size": r.ResponseDataSize,
		"error_code":         r.ErrorCode,
		"error_message":      r.ErrorMessage,
		"request_headers":    r.RequestHeaders,
		"response_headers":   r.ResponseHeaders,
	}))
}

func (a *Agent) NetworkTraceConfig() (map[string]any, error) {
	a.traceMu.RLock()
	defer a.traceMu.RUnlock()
	return maps.Clone(a.trace), nil
}

func (a *Agent) DeviceID() (string, error) {
	return a.deviceID, nil
}

/*──────── trace config ───────*/

// SetNetworkTraceConfig replaces the trace config and notifies listeners.
// It reports false, and notifies nobody, when cfg is nil or equals the
// current one.
func (a *Agent) SetNetworkTraceConfig(cfg map[string]any) bool {
	if cfg == nil {
		return false
	}
	a.traceMu.Lock()
	if reflect.DeepEqual(a.trace, cfg) {
		a.traceMu.Unlock()
		return false
	}
	a.trace = maps.Clone(cfg)
	listeners := append([]func(map[string]any){}, a.listeners...)
	a.traceMu.Unlock()

	for _, fn := range listeners {
		fn(maps.Clone(cfg))
	}
	return true
}

// OnNetworkTraceConfig registers fn for every future trace config change.
func (a *Agent) OnNetworkTraceConfig(fn func(map[string]any)) {
	a.traceMu.Lock()
	a.listeners = append(a.listeners, fn)
	a.traceMu.Unlock()
}

package rum

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rumbridge/exporter"
	"rumbridge/internal/platform/ratelimiter"
)

type captureExporter struct {
	mu     sync.Mutex
	events []*exporter.Event
	closed int
	fail   error
}

func (c *captureExporter) Configure(any) error { return nil }
func (c *captureExporter) Export(ev *exporter.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.fail
}
func (c *captureExporter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}
func (c *captureExporter) snapshot() []*exporter.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*exporter.Event(nil), c.events...)
}

var fixedNow = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

func newTestAgent(t *testing.T, opts Options) (*Agent, *captureExporter) {
	t.Helper()
	ce := &captureExporter{}
	if opts.DataDir == "" {
		opts.DataDir = t.TempDir()
	}
	opts.Exporters = append(opts.Exporters, Exporter{Name: "capture", Adapter: ce})
	opts.DeviceContext = map[string]string{"os": "linux"}
	opts.Now = func() time.Time { return fixedNow }
	a, err := NewAgent(opts)
	require.NoError(t, err)
	return a, ce
}

func TestAgent_EventsCarryMetadata(t *testing.T) {
	a, ce := newTestAgent(t, Options{AppID: "app-1"})

	require.NoError(t, a.SetUserName("u-42"))
	require.NoError(t, a.SetExtraInfo(map[string]any{"channel": "beta"}))
	require.NoError(t, a.AddExtraInfo(map[string]any{"build": 17.0}))
	require.NoError(t, a.AddUserExtraInfo(map[string]any{"plan": "pro"}))
	require.NoError(t, a.ReportView(View{ViewID: "v1", LoadTime: 120, ModelFlag: true, Name: "Home", Method: "push"}))
	require.NoError(t, a.Close())

	events := ce.snapshot()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, TypeView, ev.Type)
	assert.Equal(t, "Home", ev.Name)
	assert.Equal(t, "app-1", ev.AppID)
	assert.Equal(t, "u-42", ev.UserID)
	assert.Equal(t, fixedNow, ev.Timestamp)
	assert.Equal(t, map[string]any{"channel": "beta", "build": 17.0}, ev.Extra)
	assert.Equal(t, map[string]any{"plan": "pro"}, ev.UserExtra)
	assert.Equal(t, true, ev.Attributes["model_flag"])
	assert.Equal(t, int64(120), ev.Attributes["load_time_ms"])
	assert.Equal(t, 1, ce.closed)
}

func TestAgent_SetReplacesAddMerges(t *testing.T) {
	a, _ := newTestAgent(t, Options{})

	require.NoError(t, a.SetUserExtraInfo(map[string]any{"a": 1}))
	require.NoError(t, a.SetUserExtraInfo(map[string]any{"b": 2}))
	assert.Equal(t, map[string]any{"b": 2}, a.userExtra.snapshot())

	require.NoError(t, a.AddUserExtraInfo(map[string]any{"c": 3}))
	assert.Equal(t, map[string]any{"b": 2, "c": 3}, a.userExtra.snapshot())

	require.NoError(t, a.SetUserExtraInfo(map[string]any{}))
	assert.Nil(t, a.userExtra.snapshot())
}

func TestAgent_DeviceIDPersisted(t *testing.T) {
	dir := t.TempDir()
	a1, _ := newTestAgent(t, Options{DataDir: dir})
	a2, _ := newTestAgent(t, Options{DataDir: dir})

	id1, _ := a1.DeviceID()
	id2, _ := a2.DeviceID()
	assert.NotEmpty(t, id1)
	assert.Equal(t, id1, id2)

	other, err := loadDeviceID("")
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)
}

func TestAgent_StartExportsInBackground(t *testing.T) {
	a, ce := newTestAgent(t, Options{BatchSize: 2})
	a.Start()
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Healthy())

	for i := 0; i < 5; i++ {
		require.NoError(t, a.SetCustomLog(CustomLog{LogInfo: "tick", Name: "loop", Level: "info"}))
	}
	assert.Eventually(t, func() bool { return len(ce.snapshot()) == 5 }, time.Second, 5*time.Millisecond)
}

func TestAgent_LimiterDropsPerType(t *testing.T) {
	a, ce := newTestAgent(t, Options{Limiter: ratelimiter.New(0.001, 1, time.Minute)})

	require.NoError(t, a.SetCustomLog(CustomLog{LogInfo: "first"}))
	require.NoError(t, a.SetCustomLog(CustomLog{LogInfo: "second"}))
	require.NoError(t, a.ReportResource(Resource{URL: "https://api.example.com", Method: "GET"}))
	a.Flush()

	events := ce.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, TypeCustomLog, events[0].Type)
	assert.Equal(t, "first", events[0].Attributes["log_info"])
	assert.Equal(t, TypeResource, events[1].Type)
}

func TestAgent_ExportErrorsDoNotStopOtherExporters(t *testing.T) {
	failing := &captureExporter{fail: errors.New("down")}
	a, ce := newTestAgent(t, Options{Exporters: []Exporter{{Name: "failing", Adapter: failing}}})

	require.NoError(t, a.ReportException(Exception{ErrorValue: "StateError", Reason: "bad state"}))
	require.NoError(t, a.Close())

	assert.Len(t, failing.snapshot(), 1)
	assert.Len(t, ce.snapshot(), 1)
}

func TestAgent_RecordAfterClose(t *testing.T) {
	a, _ := newTestAgent(t, Options{})
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.SetCustomEvent(CustomEvent{Name: "late"}), ErrClosed)
	assert.ErrorIs(t, a.Healthy(), ErrClosed)
}

func TestAgent_GuardReportsThenRepanics(t *testing.T) {
	a, ce := newTestAgent(t, Options{})
	require.NoError(t, a.SetCustomLog(CustomLog{LogInfo: "before crash"}))

	assert.Panics(t, func() {
		a.Guard(func() {
			var m map[string]int
			m["boom"] = 1
		})
	})

	events := ce.snapshot()
	require.Len(t, events, 2, "queued events are flushed ahead of the crash")
	assert.Equal(t, TypeCustomLog, events[0].Type)
	assert.Equal(t, TypeCrash, events[1].Type)
	assert.Equal(t, "go", events[1].Attributes["source"])
	assert.Contains(t, events[1].Attributes["stacktrace"], "TestAgent_GuardReportsThenRepanics")
}

func TestAgent_TraceConfigListeners(t *testing.T) {
	a, _ := newTestAgent(t, Options{NetworkTrace: map[string]any{"enable": false}})

	var got []map[string]any
	a.OnNetworkTraceConfig(func(cfg map[string]any) { got = append(got, cfg) })

	assert.False(t, a.SetNetworkTraceConfig(map[string]any{"enable": false}))
	assert.False(t, a.SetNetworkTraceConfig(nil))
	assert.True(t, a.SetNetworkTraceConfig(map[string]any{"enable": true}))
	require.Len(t, got, 1)
	assert.Equal(t, true, got[0]["enable"])

	cfg, err := a.NetworkTraceConfig()
	require.NoError(t, err)
	cfg["enable"] = "mutated"
	again, _ := a.NetworkTraceConfig()
	assert.Equal(t, true, again["enable"])
}

package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rumbridge/internal/channel"
	"rumbridge/internal/rum"
	"rumbridge/internal/telemetry"
)

type sdkCall struct {
	op  string
	arg any
}

type fakeSDK struct {
	calls    []sdkCall
	err      error
	trace    map[string]any
	deviceID string
}

func (f *fakeSDK) rec(op string, arg any) error {
	f.calls = append(f.calls, sdkCall{op, arg})
	return f.err
}

func (f *fakeSDK) ReportException(e rum.Exception) error { return f.rec("ReportException", e) }
func (f *fakeSDK) ReportView(v rum.View) error           { return f.rec("ReportView", v) }
func (f *fakeSDK) ReportCustomException(e rum.CustomException) error {
	return f.rec("ReportCustomException", e)
}
func (f *fakeSDK) SetCustomEvent(e rum.CustomEvent) error  { return f.rec("SetCustomEvent", e) }
func (f *fakeSDK) SetCustomLog(l rum.CustomLog) error      { return f.rec("SetCustomLog", l) }
func (f *fakeSDK) SetUserName(id string) error             { return f.rec("SetUserName", id) }
func (f *fakeSDK) SetUserExtraInfo(m map[string]any) error { return f.rec("SetUserExtraInfo", m) }
func (f *fakeSDK) AddUserExtraInfo(m map[string]any) error { return f.rec("AddUserExtraInfo", m) }
func (f *fakeSDK) SetExtraInfo(m map[string]any) error     { return f.rec("SetExtraInfo", m) }
func (f *fakeSDK) AddExtraInfo(m map[string]any) error     { return f.rec("AddExtraInfo", m) }
func (f *fakeSDK) ReportResource(r rum.Resource) error     { return f.rec("ReportResource", r) }

func (f *fakeSDK) NetworkTraceConfig() (map[string]any, error) {
	f.calls = append(f.calls, sdkCall{op: "NetworkTraceConfig"})
	return f.trace, f.err
}

func (f *fakeSDK) DeviceID() (string, error) {
	f.calls = append(f.calls, sdkCall{op: "DeviceID"})
	return f.deviceID, f.err
}

func noSpawn(func()) {}

func call(t *testing.T, d *Dispatcher, method string, args any) channel.Result {
	t.Helper()
	return d.Handle(context.Background(), channel.MethodCall{Method: method, Arguments: args})
}

func TestHandle_ForwardsEachMethodOnce(t *testing.T) {
	info := map[string]any{"plan": "pro", "seats": 3.0}
	cases := []struct {
		method string
		args   map[string]any
		op     string
		want   any
	}{
		{
			"reportCrash",
			map[string]any{"errorValue": "StateError", "reason": "bad", "stacktrace": "#0 main"},
			"ReportException",
			rum.Exception{ErrorValue: "StateError", Reason: "bad", Stacktrace: "#0 main"},
		},
		{
			"reportView",
			map[string]any{"time": 1700000000000.0, "viewId": "v1", "loadTime": 85.0, "model": 1.0, "name": "Home", "method": "push"},
			"ReportView",
			rum.View{ViewID: "v1", LoadTime: 85, ModelFlag: true, Name: "Home", Method: "push", StartedAt: time.UnixMilli(1700000000000)},
		},
		{
			"setCustomException",
			map[string]any{"exceptionType": "Timeout", "causedBy": "socket", "errorDump": "dump"},
			"ReportCustomException",
			rum.CustomException{ExceptionType: "Timeout", CausedBy: "socket", ErrorDump: "dump"},
		},
		{
			"setCustomEvent",
			map[string]any{"name": "checkout", "value": 12.5, "group": "shop", "snapshots": "s", "attributes": map[string]any{"k": "v"}},
			"SetCustomEvent",
			rum.CustomEvent{Name: "checkout", Value: "12.5", Group: "shop", Snapshots: "s", Attributes: map[string]any{"k": "v"}},
		},
		{
			"setCustomLog",
			map[string]any{"logInfo": "hello", "name": "boot", "level": "info", "snapshots": "s", "attributes": map[string]any{"k": "v"}},
			"SetCustomLog",
			rum.CustomLog{LogInfo: "hello", Name: "boot", Level: "info", Snapshots: "s", Attributes: map[string]any{"k": "v"}},
		},
		{"setUserID", map[string]any{"userID": "u-1"}, "SetUserName", "u-1"},
		{"setUserExtraInfo", info, "SetUserExtraInfo", info},
		{"addUserExtraInfo", info, "AddUserExtraInfo", info},
		{"setExtraInfo", info, "SetExtraInfo", info},
		{"addExtraInfo", info, "AddExtraInfo", info},
		{
			"reportNetwork",
			map[string]any{
				"requestUrl": "https://api.example.com/a", "method": "POST",
				"connectTimeMs": 12.0, "responseTimeMs": 340.0, "resourceType": "xhr",
				"responseDataSize": 2048.0, "errorCode": 503.0, "errorMessage": "unavailable",
				"httpRequestHeader":  map[string]any{"accept": "json"},
				"httpResponseHeader": map[string]any{"server": "edge"},
			},
			"ReportResource",
			rum.Resource{
				URL: "https://api.example.com/a", Method: "POST",
				ConnectTimeMs: 12, ResponseTimeMs: 340, ResourceType: "xhr",
				ResponseDataSize: 2048, ErrorCode: "503", ErrorMessage: "unavailable",
				RequestHeaders:  map[string]any{"accept": "json"},
				ResponseHeaders: map[string]any{"server": "edge"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			sdk := &fakeSDK{}
			res := call(t, New(sdk, WithSpawner(noSpawn)), tc.method, tc.args)

			require.True(t, res.OK(), "unexpected error: %v", res.Err)
			assert.Equal(t, channel.SuccessMarker, res.Value)
			require.Len(t, sdk.calls, 1)
			assert.Equal(t, tc.op, sdk.calls[0].op)
			assert.Equal(t, tc.want, sdk.calls[0].arg)
		})
	}
}

func TestHandle_UnrecognizedMethod(t *testing.T) {
	sdk := &fakeSDK{}
	d := New(sdk, WithSpawner(noSpawn))
	counter := telemetry.CallsTotal.WithLabelValues("unknown", telemetry.OutcomeUnrecognized)
	before := testutil.ToFloat64(counter)

	res := call(t, d, "doesNotExist", map[string]any{"x": 1})

	assert.True(t, res.OK())
	assert.Equal(t, channel.SuccessMarker, res.Value)
	assert.Empty(t, sdk.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandle_CustomEventValue(t *testing.T) {
	tests := map[string]struct {
		args map[string]any
		want string
	}{
		"absent":   {map[string]any{"name": "e"}, "0"},
		"null":     {map[string]any{"name": "e", "value": nil}, "0"},
		"integral": {map[string]any{"name": "e", "value": 3.0}, "3"},
		"fraction": {map[string]any{"name": "e", "value": 0.25}, "0.25"},
		"negative": {map[string]any{"name": "e", "value": -7.5}, "-7.5"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			sdk := &fakeSDK{}
			require.True(t, call(t, New(sdk), "setCustomEvent", tc.args).OK())
			require.Len(t, sdk.calls, 1)
			assert.Equal(t, tc.want, sdk.calls[0].arg.(rum.CustomEvent).Value)
		})
	}
}

func TestHandle_ViewModelFlag(t *testing.T) {
	for model, want := range map[float64]bool{1: true, 0: false, 2: false, -1: false} {
		sdk := &fakeSDK{}
		args := map[string]any{"viewId": "v", "name": "n", "loadTime": 1.0, "model": model}
		require.True(t, call(t, New(sdk), "reportView", args).OK())
		assert.Equal(t, want, sdk.calls[0].arg.(rum.View).ModelFlag, "model=%v", model)
	}
}

func TestHandle_NetworkWithoutErrorCode(t *testing.T) {
	for _, args := range []map[string]any{
		{"requestUrl": "https://x", "method": "GET"},
		{"requestUrl": "https://x", "method": "GET", "errorCode": nil},
	} {
		sdk := &fakeSDK{}
		require.True(t, call(t, New(sdk), "reportNetwork", args).OK())
		assert.Equal(t, "", sdk.calls[0].arg.(rum.Resource).ErrorCode)
	}
}

func TestHandle_GettersReturnSDKValues(t *testing.T) {
	trace := map[string]any{"enable": true, "sampleRate": 0.1}
	sdk := &fakeSDK{trace: trace, deviceID: "dev-9"}
	d := New(sdk)

	res := call(t, d, "getNetworkTraceConfig", nil)
	require.True(t, res.OK())
	assert.Equal(t, trace, res.Value)

	res = call(t, d, "getDeviceId", nil)
	require.True(t, res.OK())
	assert.Equal(t, "dev-9", res.Value)
}

func TestHandle_InvalidArguments(t *testing.T) {
	sdk := &fakeSDK{}
	d := New(sdk)

	tests := map[string]struct {
		method string
		args   any
	}{
		"wrong type":          {"setUserID", map[string]any{"userID": []any{"a"}}},
		"fractional int":      {"reportView", map[string]any{"viewId": "v", "name": "n", "loadTime": 1.5}},
		"list instead of map": {"setExtraInfo", []any{"a", "b"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			res := call(t, d, tc.method, tc.args)
			require.False(t, res.OK())
			assert.Equal(t, channel.CodeInvalidArgument, res.Err.Code)
			assert.NotEmpty(t, res.Err.Message)
			assert.Nil(t, res.Err.Details)
		})
	}
	assert.Empty(t, sdk.calls)
}

func TestHandle_ForwardsValuesWithoutRangeChecks(t *testing.T) {
	cases := []struct {
		method string
		args   map[string]any
		want   any
	}{
		{"reportCrash", map[string]any{"errorValue": ""}, rum.Exception{}},
		{"reportCrash", map[string]any{"reason": "no error value"}, rum.Exception{Reason: "no error value"}},
		{"reportView", map[string]any{"viewId": "v", "name": "n", "loadTime": -1.0}, rum.View{ViewID: "v", Name: "n", LoadTime: -1}},
		{"reportNetwork", map[string]any{"requestUrl": "https://x", "method": "GET", "connectTimeMs": -1.0}, rum.Resource{URL: "https://x", Method: "GET", ConnectTimeMs: -1}},
		{"setCustomEvent", map[string]any{"name": ""}, rum.CustomEvent{Value: "0"}},
		{"setCustomLog", map[string]any{"logInfo": ""}, rum.CustomLog{}},
	}
	for _, tc := range cases {
		sdk := &fakeSDK{}
		res := call(t, New(sdk), tc.method, tc.args)
		require.True(t, res.OK(), "%s %v: %v", tc.method, tc.args, res.Err)
		require.Len(t, sdk.calls, 1)
		assert.Equal(t, tc.want, sdk.calls[0].arg)
	}
}

func TestHandle_SDKError(t *testing.T) {
	sdk := &fakeSDK{err: errors.New("queue closed")}
	res := call(t, New(sdk), "setUserID", map[string]any{"userID": "u"})

	require.False(t, res.OK())
	assert.Equal(t, channel.CodeSDKError, res.Err.Code)
	assert.Contains(t, res.Err.Message, "queue closed")

	res = call(t, New(sdk), "getDeviceId", nil)
	require.False(t, res.OK())
	assert.Equal(t, channel.CodeSDKError, res.Err.Code)
}

func TestHandle_CancelledContext(t *testing.T) {
	sdk := &fakeSDK{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(sdk).Handle(ctx, channel.MethodCall{Method: "setUserID", Arguments: map[string]any{"userID": "u"}})
	require.False(t, res.OK())
	assert.Equal(t, channel.CodeCancelled, res.Err.Code)
	assert.Empty(t, sdk.calls)
}

func TestHandle_TriggerCrashPanicsOnCaller(t *testing.T) {
	spawned := 0
	d := New(&fakeSDK{}, WithSpawner(func(func()) { spawned++ }))

	assert.Panics(t, func() { call(t, d, "triggerCrash", nil) })
	assert.Zero(t, spawned)
}

func TestHandle_TriggerCrash2ReturnsThenCrashesInBackground(t *testing.T) {
	var background func()
	d := New(&fakeSDK{}, WithSpawner(func(fn func()) { background = fn }))

	res := call(t, d, "triggerCrash2", nil)
	require.True(t, res.OK())
	assert.Equal(t, channel.SuccessMarker, res.Value)

	require.NotNil(t, background)
	assert.Panics(t, background)
}

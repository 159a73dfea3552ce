// Package rum is the Real User Monitoring SDK the channel dispatcher forwards
// to. SDK is the surface the dispatcher depends on; Agent implements it by
// turning every call into an exporter.Event.
package rum

import "time"

// Event types emitted by the agent.
const (
	TypeCrash           = "crash"
	TypeView            = "view"
	TypeCustomException = "custom_exception"
	TypeCustomEvent     = "custom_event"
	TypeCustomLog       = "custom_log"
	TypeResource        = "resource"
)

type Exception struct {
	ErrorValue string
	Reason     string
	Stacktrace string
}

type View struct {
	ViewID    string
	LoadTime  int64 // ms
	ModelFlag bool
	Name      string
	Method    string
	StartedAt time.Time // zero when the caller did not send a time
}

type CustomException struct {
	ExceptionType string
	CausedBy      string
	ErrorDump     string
}

type CustomEvent struct {
	Name       string
	Value      string
	Group      string
	Snapshots  string
	Attributes map[string]any
}

type CustomLog struct {
	LogInfo    string
	Name       string
	Level      string
	Snapshots  string
	Attributes map[string]any
}

// Resource is one network request's timing.
type Resource struct {
	URL              string
	Method           string
	ConnectTimeMs    int64
	ResponseTimeMs   int64
	ResourceType     string
	ResponseDataSize int64
	ErrorCode        string
	ErrorMessage     string
	RequestHeaders   map[string]any
	ResponseHeaders  map[string]any
}

type SDK interface {
	ReportException(Exception) error
	ReportView(View) error
	ReportCustomException(CustomException) error
	SetCustomEvent(CustomEvent) error
	SetCustomLog(CustomLog) error

	SetUserName(id string) error
	SetUserExtraInfo(info map[string]any) error
	AddUserExtraInfo(info map[string]any) error
	SetExtraInfo(info map[string]any) error
	AddExtraInfo(info map[string]any) error

	ReportResource(Resource) error

	NetworkTraceConfig() (map[string]any, error)
	DeviceID() (string, error)
}

// Package request decodes the loosely typed argument bag of a channel call
// into one concrete request type per recognised method.
package request

// Method names recognised on the channel.
const (
	MethodReportCrash           = "reportCrash"
	MethodReportView            = "reportView"
	MethodSetCustomException    = "setCustomException"
	MethodSetCustomEvent        = "setCustomEvent"
	MethodSetCustomLog          = "setCustomLog"
	MethodSetUserID             = "setUserID"
	MethodSetUserExtraInfo      = "setUserExtraInfo"
	MethodAddUserExtraInfo      = "addUserExtraInfo"
	MethodSetExtraInfo          = "setExtraInfo"
	MethodAddExtraInfo          = "addExtraInfo"
	MethodReportNetwork         = "reportNetwork"
	MethodGetNetworkTraceConfig = "getNetworkTraceConfig"
	MethodGetDeviceID           = "getDeviceId"
	MethodTriggerCrash          = "triggerCrash"
	MethodTriggerCrash2         = "triggerCrash2"
)

// Request is implemented only by the types in this package.
type Request interface {
	Method() string
	isRequest()
}

type ReportCrash struct {
	ErrorValue string `json:"errorValue"`
	Reason     string `json:"reason,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

// ReportView describes one page load. Model is 1 for the flagged load mode;
// every other value clears the flag.
type ReportView struct {
	Time      int64  `json:"time,omitempty"`
	ViewID    string `json:"viewId"`
	LoadTime  int64  `json:"loadTime"`
	Model     int64  `json:"model,omitempty"`
	Name      string `json:"name"`
	NavMethod string `json:"method,omitempty"`
}

type SetCustomException struct {
	ExceptionType string `json:"exceptionType"`
	CausedBy      string `json:"causedBy,omitempty"`
	ErrorDump     string `json:"errorDump,omitempty"`
}

// SetCustomEvent carries a numeric Value; nil means the caller omitted it.
type SetCustomEvent struct {
	Name       string         `json:"name"`
	Value      *float64       `json:"value,omitempty"`
	Group      string         `json:"group,omitempty"`
	Snapshots  string         `json:"snapshots,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type SetCustomLog struct {
	LogInfo    string         `json:"logInfo"`
	Name       string         `json:"name,omitempty"`
	Level      string         `json:"level,omitempty"`
	Snapshots  string         `json:"snapshots,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type SetUserID struct {
	UserID string `json:"userID"`
}

// UserExtraInfo is setUserExtraInfo (Merge=false) or addUserExtraInfo
// (Merge=true). Info is the whole argument map.
type UserExtraInfo struct {
	Merge bool
	Info  map[string]any
}

// ExtraInfo is setExtraInfo (Merge=false) or addExtraInfo (Merge=true).
type ExtraInfo struct {
	Merge bool
	Info  map[string]any
}

type ReportNetwork struct {
	RequestURL         string         `json:"requestUrl"`
	HTTPMethod         string         `json:"method"`
	ConnectTimeMs      int64          `json:"connectTimeMs"`
	ResponseTimeMs     int64          `json:"responseTimeMs"`
	ResourceType       string         `json:"resourceType,omitempty"`
	ResponseDataSize   int64          `json:"responseDataSize,omitempty"`
	ErrorCode          *int64         `json:"errorCode,omitempty"`
	ErrorMessage       string         `json:"errorMessage,omitempty"`
	HTTPRequestHeader  map[string]any `json:"httpRequestHeader,omitempty"`
	HTTPResponseHeader map[string]any `json:"httpResponseHeader,omitempty"`
}

type GetNetworkTraceConfig struct{}

type GetDeviceID struct{}

// TriggerCrash dereferences nil on purpose. Background selects a spawned
// goroutine (triggerCrash2) instead of the calling one.
type TriggerCrash struct {
	Background bool
}

// Unknown is any method name not listed above.
type Unknown struct {
	Name string
}

func (ReportCrash) Method() string        { return MethodReportCrash }
func (ReportView) Method() string         { return MethodReportView }
func (SetCustomException) Method() string { return MethodSetCustomException }
func (SetCustomEvent) Method() string     { return MethodSetCustomEvent }
func (SetCustomLog) Method() string       { return MethodSetCustomLog }
func (SetUserID) Method() string          { return MethodSetUserID }
func (ReportNetwork) Method() string      { return MethodReportNetwork }
func (GetNetworkTraceConfig) Method() string {
	return MethodGetNetworkTraceConfig
}
func (GetDeviceID) Method() string { return MethodGetDeviceID }
func (u Unknown) Method() string   { return u.Name }

func (r UserExtraInfo) Method() string {
	if r.Merge {
		return MethodAddUserExtraInfo
	}
	return MethodSetUserExtraInfo
}

func (r ExtraInfo) Method() string {
	if r.Merge {
		return MethodAddExtraInfo
	}
	return MethodSetExtraInfo
}

func (r TriggerCrash) Method() string {
	if r.Background {
		return MethodTriggerCrash2
	}
	return MethodTriggerCrash
}

func (ReportCrash) isRequest()           {}
func (ReportView) isRequest()            {}
func (SetCustomException) isRequest()    {}
func (SetCustomEvent) isRequest()        {}
func (SetCustomLog) isRequest()          {}
func (SetUserID) isRequest()             {}
func (UserExtraInfo) isRequest()         {}
func (ExtraInfo) isRequest()             {}
func (ReportNetwork) isRequest()         {}
func (GetNetworkTraceConfig) isRequest() {}
func (GetDeviceID) isRequest()           {}
func (TriggerCrash) isRequest()          {}
func (Unknown) isRequest()               {}

package request

import (
	"errors"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
)

var ErrUnknownMethod = errors.New("unknown method")

var keyed = map[string]any{
	MethodReportCrash:        ReportCrash{},
	MethodReportView:         ReportView{},
	MethodSetCustomException: SetCustomException{},
	MethodSetCustomEvent:     SetCustomEvent{},
	MethodSetCustomLog:       SetCustomLog{},
	MethodSetUserID:          SetUserID{},
	MethodReportNetwork:      ReportNetwork{},
}

var freeForm = map[string]bool{
	MethodSetUserExtraInfo: true,
	MethodAddUserExtraInfo: true,
	MethodSetExtraInfo:     true,
	MethodAddExtraInfo:     true,
}

var noArgs = map[string]bool{
	MethodGetNetworkTraceConfig: true,
	MethodGetDeviceID:           true,
	MethodTriggerCrash:          true,
	MethodTriggerCrash2:         true,
}

// Methods returns every recognised method name, sorted.
func Methods() []string {
	out := make([]string, 0, len(keyed)+len(freeForm)+len(noArgs))
	for _, set := range []map[string]bool{freeForm, noArgs} {
		for m := range set {
			out = append(out, m)
		}
	}
	for m := range keyed {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Schema describes the argument bag accepted by method.
func Schema(method string) (*jsonschema.Schema, error) {
	switch {
	case keyed[method] != nil:
		r := &jsonschema.Reflector{DoNotReference: true, AllowAdditionalProperties: true}
		s := r.Reflect(keyed[method])
		s.Title = method
		return s, nil
	case freeForm[method]:
		return &jsonschema.Schema{Title: method, Type: "object", Description: "metadata map, forwarded whole"}, nil
	case noArgs[method]:
		return &jsonschema.Schema{Title: method, Type: "null", Description: "takes no arguments"}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMethod, method)
	}
}

// Known reports whether method is one of Methods.
func Known(method string) bool {
	return keyed[method] != nil || freeForm[method] || noArgs[method]
}

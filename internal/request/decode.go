package request

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

var ErrNotAMap = errors.New("arguments must be a map")

// DecodeError reports an argument bag that does not fit its method.
type DecodeError struct {
	Method string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode turns a method name and its argument bag into a Request. Unknown
// methods decode to Unknown without error; their arguments are ignored.
func Decode(method string, args any) (Request, error) {
	switch method {
	case MethodReportCrash:
		return decodeInto[ReportCrash](method, args)
	case MethodReportView:
		return decodeInto[ReportView](method, args)
	case MethodSetCustomException:
		return decodeInto[SetCustomException](method, args)
	case MethodSetCustomEvent:
		return decodeInto[SetCustomEvent](method, args)
	case MethodSetCustomLog:
		return decodeInto[SetCustomLog](method, args)
	case MethodSetUserID:
		return decodeInto[SetUserID](method, args)
	case MethodReportNetwork:
		return decodeInto[ReportNetwork](method, args)
	case MethodSetUserExtraInfo, MethodAddUserExtraInfo:
		info, err := asMap(method, args)
		if err != nil {
			return nil, err
		}
		return UserExtraInfo{Merge: method == MethodAddUserExtraInfo, Info: info}, nil
	case MethodSetExtraInfo, MethodAddExtraInfo:
		info, err := asMap(method, args)
		if err != nil {
			return nil, err
		}
		return ExtraInfo{Merge: method == MethodAddExtraInfo, Info: info}, nil
	case MethodGetNetworkTraceConfig:
		return GetNetworkTraceConfig{}, nil
	case MethodGetDeviceID:
		return GetDeviceID{}, nil
	case MethodTriggerCrash:
		return TriggerCrash{}, nil
	case MethodTriggerCrash2:
		return TriggerCrash{Background: true}, nil
	default:
		return Unknown{Name: method}, nil
	}
}

func decodeInto[T Request](method string, args any) (Request, error) {
	m, err := asMap(method, args)
	if err != nil {
		return nil, err
	}
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &out,
		DecodeHook: mapstructure.DecodeHookFuncType(integralFloat),
	})
	if err != nil {
		return nil, &DecodeError{Method: method, Err: err}
	}
	if err := dec.Decode(m); err != nil {
		return nil, &DecodeError{Method: method, Err: err}
	}
	return out, nil
}

func asMap(method string, args any) (map[string]any, error) {
	switch v := args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, &DecodeError{Method: method, Err: fmt.Errorf("%w, got %T", ErrNotAMap, args)}
	}
}

// integralFloat lets JSON-style numbers (always float64 on the wire) land in
// integer fields, but only when they carry no fraction.
func integralFloat(_ reflect.Type, to reflect.Type, data any) (any, error) {
	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%v out of int64 range", f)
	}
	return int64(f), nil
}

package pb

import (
	"errors"
	"fmt"

	structpb "google.golang.org/protobuf/types/known/structpb"
)

// Envelope keys. A call (and a pushed notification) is
// {"method": string, "arguments": any}; a response is either
// {"success": any} or {"error": {"code", "message", "details"}}.
const (
	FieldMethod    = "method"
	FieldArguments = "arguments"
	FieldSuccess   = "success"
	FieldError     = "error"
	FieldCode      = "code"
	FieldMessage   = "message"
	FieldDetails   = "details"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Failure is the error variant of a response envelope.
type Failure struct {
	Code    string
	Message string
	Details any
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func NewCall(method string, args any) (*structpb.Struct, error) {
	v, err := structpb.NewValue(args)
	if err != nil {
		return nil, fmt.Errorf("arguments for %s: %w", method, err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldMethod:    structpb.NewStringValue(method),
		FieldArguments: v,
	}}, nil
}

func ParseCall(s *structpb.Struct) (method string, args any, err error) {
	if s == nil {
		return "", nil, ErrMalformedEnvelope
	}
	sv, ok := s.GetFields()[FieldMethod].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", nil, fmt.Errorf("%w: missing %q", ErrMalformedEnvelope, FieldMethod)
	}
	if a, ok := s.GetFields()[FieldArguments]; ok {
		args = a.AsInterface()
	}
	return sv.StringValue, args, nil
}

func NewSuccess(value any) (*structpb.Struct, error) {
	v, err := structpb.NewValue(value)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{FieldSuccess: v}}, nil
}

func NewFailure(f *Failure) (*structpb.Struct, error) {
	details, err := structpb.NewValue(f.Details)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldError: structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			FieldCode:    structpb.NewStringValue(f.Code),
			FieldMessage: structpb.NewStringValue(f.Message),
			FieldDetails: details,
		}}),
	}}, nil
}

// ParseResponse returns the success value, or a *Failure error for the error
// variant.
func ParseResponse(s *structpb.Struct) (any, error) {
	if s == nil {
		return nil, ErrMalformedEnvelope
	}
	if v, ok := s.GetFields()[FieldSuccess]; ok {
		return v.AsInterface(), nil
	}
	e := s.GetFields()[FieldError].GetStructValue()
	if e == nil {
		return nil, fmt.Errorf("%w: neither %q nor %q set", ErrMalformedEnvelope, FieldSuccess, FieldError)
	}
	f := &Failure{
		Code:    e.GetFields()[FieldCode].GetStringValue(),
		Message: e.GetFields()[FieldMessage].GetStringValue(),
	}
	if d, ok := e.GetFields()[FieldDetails]; ok {
		f.Details = d.AsInterface()
	}
	return nil, f
}

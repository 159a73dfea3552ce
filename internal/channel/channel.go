// Package channel holds the values that cross the method channel between the
// UI runtime and the bridge: inbound calls, their results, and outbound
// notifications.
package channel

import (
	"errors"
	"fmt"
	"sync"
)

// SuccessMarker is the value returned by every fire-and-forget method.
const SuccessMarker = "success"

// Error codes carried in a failed Result.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeSDKError        = "SDK_ERROR"
	CodeCancelled       = "CANCELLED"
)

// MethodCall is one inbound invocation. Arguments is whatever the caller
// sent: usually a map, sometimes nil or a list.
type MethodCall struct {
	Method    string
	Arguments any
}

// Error is the failure variant of a Result.
type Error struct {
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Result is exactly one of a success value or an Error.
type Result struct {
	Value any
	Err   *Error
}

func Success(v any) Result { return Result{Value: v} }

func Failure(code, msg string, details any) Result {
	return Result{Err: &Error{Code: code, Message: msg, Details: details}}
}

func (r Result) OK() bool { return r.Err == nil }

// Notification is an outbound call pushed to the UI side.
type Notification struct {
	Method    string
	Arguments map[string]any
}

var (
	ErrClosed = errors.New("channel: closed")
	ErrFull   = errors.New("channel: notification buffer full")
)

// Handle is one attached channel. Notify never blocks.
type Handle struct {
	out  chan Notification
	done chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewHandle(buffer int) *Handle {
	if buffer < 1 {
		buffer = 1
	}
	return &Handle{
		out:  make(chan Notification, buffer),
		done: make(chan struct{}),
	}
}

func (h *Handle) Notify(n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	select {
	case h.out <- n:
		return nil
	default:
		return ErrFull
	}
}

// Notifications is drained by the transport writing to the UI side.
func (h *Handle) Notifications() <-chan Notification { return h.out }

// Done is closed once the handle is closed.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		close(h.done)
	})
}

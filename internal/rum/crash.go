package rum

import (
	"fmt"
	"runtime/debug"
)

// Go runs fn on a new goroutine. If fn panics, the panic is exported as a
// crash event and then re-raised, so the process still dies.
func (a *Agent) Go(fn func()) {
	go a.Guard(fn)
}

// Guard runs fn on the calling goroutine with the same crash capture as Go.
func (a *Agent) Guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.ReportPanic(r, debug.Stack())
			panic(r)
		}
	}()
	fn()
}

// ReportPanic exports a crash event synchronously, after everything already
// queued, bypassing the rate limiter.
func (a *Agent) ReportPanic(v any, stack []byte) {
	ev := a.newEvent(TypeCrash, fmt.Sprint(v), map[string]any{
		"reason":     "panic",
		"stacktrace": string(stack),
		"source":     "go",
	})
	a.Flush()
	a.export([]interface{}{ev})
	a.log.Error("crash captured", "value", ev.Name)
}

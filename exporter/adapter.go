package exporter

import (
	"fmt"
	"sort"
	"time"
)

// Event is one telemetry record produced by the RUM agent.
type Event struct {
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	AppID      string            `json:"app_id,omitempty"`
	DeviceID   string            `json:"device_id"`
	UserID     string            `json:"user_id,omitempty"`
	UserExtra  map[string]any    `json:"user_extra,omitempty"`
	Extra      map[string]any    `json:"extra,omitempty"`
	Device     map[string]string `json:"device,omitempty"`
	Attributes map[string]any    `json:"attributes,omitempty"`
}

// Adapter is the common behaviour every exporter exposes. Export may be
// called from several goroutines.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	Export(*Event) error // ship one event
	Close() error        // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown exporter %q", name)
}

// Names lists the registered exporters.
func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

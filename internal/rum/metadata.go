package rum

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v2"
)

// metadata is a user or global key/value set attached to every event.
// Writers hold mu exclusively; snapshot holds it shared, so an event never
// sees half of a replace.
type metadata struct {
	mu sync.RWMutex
	m  *xsync.MapOf[string, any]
}

func newMetadata() *metadata {
	return &metadata{m: xsync.NewMapOf[any]()}
}

func (md *metadata) replace(info map[string]any) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.m.Range(func(k string, _ any) bool {
		md.m.Delete(k)
		return true
	})
	for k, v := range info {
		md.m.Store(k, v)
	}
}

func (md *metadata) merge(info map[string]any) {
	md.mu.Lock()
	defer md.mu.Unlock()
	for k, v := range info {
		md.m.Store(k, v)
	}
}

// snapshot returns nil when empty so events omit the field.
func (md *metadata) snapshot() map[string]any {
	md.mu.RLock()
	defer md.mu.RUnlock()
	if md.m.Size() == 0 {
		return nil
	}
	out := make(map[string]any, md.m.Size())
	md.m.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

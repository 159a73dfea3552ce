package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/valyala/bytebufferpool"

	"rumbridge/exporter"
)

/* ────────── public config ────────── */
type Config struct {
	PrintCounter bool      // prepend seq#
	Writer       io.Writer // defaults to os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu  sync.Mutex // guards seq and the writer
	seq uint64
}

/* ────────── exporter.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-exporter: expected Config, got %T", raw)
	}
	if c.Writer == nil {
		c.Writer = os.Stdout
	}
	d.cfg = c
	return nil
}

// Export writes one JSON line per event.
func (d *driver) Export(ev *exporter.Event) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.cfg.PrintCounter {
		fmt.Fprintf(buf, "[rum %06d] ", d.seq)
	}
	if err := json.NewEncoder(buf).Encode(ev); err != nil {
		return fmt.Errorf("stdout-exporter: encode %s: %w", ev.Type, err)
	}
	_, err := d.cfg.Writer.Write(buf.B)
	return err
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	exporter.Register("stdout", func() exporter.Adapter { return &driver{} })
}

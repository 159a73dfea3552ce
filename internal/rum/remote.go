package rum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"rumbridge/internal/logging"
)

// TraceConfigStore receives refreshed trace configs. *Agent implements it.
type TraceConfigStore interface {
	SetNetworkTraceConfig(map[string]any) bool
}

type PollerOptions struct {
	URL        string
	AppID      string
	Interval   time.Duration
	Timeout    time.Duration
	MaxRetries uint64
	Client     *http.Client
	// NewBackOff overrides the exponential backoff between failed fetches.
	NewBackOff func() backoff.BackOff
}

// Poller periodically fetches the network trace config from the config
// address. The body is a JSON object, either the config itself or wrapped as
// {"networkTraceConfig": {...}}.
type Poller struct {
	store TraceConfigStore
	opts  PollerOptions
	log   *slog.Logger
}

func NewPoller(store TraceConfigStore, opts PollerOptions) *Poller {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	return &Poller{store: store, opts: opts, log: logging.For("remote-config")}
}

// Run refreshes immediately and then every Interval until ctx is done.
// Failed refreshes are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.opts.Interval)
	defer t.Stop()
	for {
		if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("trace config refresh failed", "url", p.opts.URL, "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Refresh fetches once, retrying transient failures with backoff.
func (p *Poller) Refresh(ctx context.Context) error {
	var cfg map[string]any
	op := func() error {
		c, err := p.fetch(ctx)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.opts.NewBackOff(), p.opts.MaxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("fetch trace config: %w", err)
	}
	if p.store.SetNetworkTraceConfig(cfg) {
		p.log.Info("trace config updated", "keys", len(cfg))
	}
	return nil
}

func (p *Poller) fetch(ctx context.Context) (map[string]any, error) {
	u, err := url.Parse(p.opts.URL)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if p.opts.AppID != "" {
		q := u.Query()
		q.Set("app_id", p.opts.AppID)
		u.RawQuery = q.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode body: %w", err))
	}
	if inner, ok := body["networkTraceConfig"].(map[string]any); ok {
		return inner, nil
	}
	return body, nil
}

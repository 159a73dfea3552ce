package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/heptiolabs/healthcheck"

	"rumbridge/exporter"
	"rumbridge/exporter/kafka"
	"rumbridge/exporter/stdout"
	"rumbridge/internal/config"
	"rumbridge/internal/dispatch"
	"rumbridge/internal/logging"
	"rumbridge/internal/platform/ratelimiter"
	"rumbridge/internal/plugin"
	"rumbridge/internal/rum"
	"rumbridge/internal/telemetry"
	"rumbridge/internal/transport"
)

func Bootstrap(ctx context.Context, cfg config.Config) (*Engine, error) {
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	log := logging.For("engine")

	// 1. exporters
	exporters, err := buildExporters(cfg.Exporters)
	if err != nil {
		return nil, err
	}

	// 2. rum agent
	agent, err := rum.NewAgent(rum.Options{
		AppID:         cfg.App.AppID,
		ConfigAddress: cfg.App.ConfigAddress,
		DataDir:       cfg.App.DataDir,
		QueueHint:     cfg.Agent.QueueHint,
		BatchSize:     cfg.Agent.BatchSize,
		Exporters:     exporters,
		Limiter:       ratelimiter.New(cfg.Limiter.RPS, cfg.Limiter.Burst, cfg.Limiter.IdleTTL),
		NetworkTrace:  cfg.NetworkTrace,
	})
	if err != nil {
		closeExporters(exporters)
		return nil, fmt.Errorf("rum agent: %w", err)
	}
	agent.Start()

	// 3. dispatcher + plugin; trace config changes are pushed to the UI side
	p := plugin.New(dispatch.New(agent, dispatch.WithSpawner(agent.Go)))
	agent.OnNetworkTraceConfig(p.SetNetworkTraceConfig)

	// 4. transport server
	srv, err := transport.StartServer(cfg.Transport.GRPCPort, p,
		transport.WithCrashReporter(agent),
		transport.WithNotifyBuffer(cfg.Transport.NotifyBuffer),
	)
	if err != nil {
		_ = agent.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 5. metrics + health
	health := telemetry.NewHealth(cfg.Telemetry.GoroutineThreshold, map[string]healthcheck.Check{
		"rum-agent": agent.Healthy,
	})
	metrics := telemetry.Expose(cfg.Telemetry.MetricsPort, health)

	// 6. remote trace config
	var poller *rum.Poller
	if cfg.RemoteConfig.Enabled {
		poller = rum.NewPoller(agent, rum.PollerOptions{
			URL:        cfg.RemoteConfig.URL,
			AppID:      cfg.App.AppID,
			Interval:   cfg.RemoteConfig.Interval,
			Timeout:    cfg.RemoteConfig.Timeout,
			MaxRetries: cfg.RemoteConfig.MaxRetries,
		})
	}

	log.Info("bootstrapped",
		"grpc_port", cfg.Transport.GRPCPort,
		"metrics_port", cfg.Telemetry.MetricsPort,
		"exporters", cfg.Exporters.Enabled,
		"remote_config", cfg.RemoteConfig.Enabled,
	)
	return &Engine{
		transport: srv,
		agent:     agent,
		metrics:   metrics,
		poller:    poller,
	}, nil
}

func buildExporters(cfg config.ExportersConfig) ([]rum.Exporter, error) {
	var out []rum.Exporter
	for _, name := range cfg.Enabled {
		raw, err := exporterConfig(name, cfg)
		if err != nil {
			closeExporters(out)
			return nil, err
		}
		a, err := exporter.NewAdapter(name)
		if err == nil {
			err = a.Configure(raw)
		}
		if err != nil {
			closeExporters(out)
			return nil, fmt.Errorf("exporter %s: %w", name, err)
		}
		out = append(out, rum.Exporter{Name: name, Adapter: a})
	}
	return out, nil
}

func exporterConfig(name string, cfg config.ExportersConfig) (any, error) {
	switch name {
	case "stdout":
		return stdout.Config{PrintCounter: cfg.Stdout.PrintCounter}, nil
	case "kafka":
		k := cfg.Kafka
		return kafka.Config{
			Brokers:      k.Brokers,
			Topic:        k.Topic,
			RequiredAcks: k.RequiredAcks,
			Version:      k.Version,
			ClientID:     k.ClientID,
		}, nil
	default:
		return nil, fmt.Errorf("unknown exporter %q (known: %v)", name, exporter.Names())
	}
}

func closeExporters(ex []rum.Exporter) {
	var errs []error
	for _, e := range ex {
		errs = append(errs, e.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logging.For("engine").Warn("close exporters", "err", err)
	}
}

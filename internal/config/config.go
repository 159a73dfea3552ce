package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	SupportedSchema = "v1"
	EnvPrefix       = "RUMBRIDGE__"
)

type AppConfig struct {
	AppID         string `koanf:"app_id"`
	ConfigAddress string `koanf:"config_address"`
	DataDir       string `koanf:"data_dir"` // device id lives here; empty = in-memory
}

type TransportConfig struct {
	GRPCPort     int `koanf:"grpc_port" validate:"gte=0,lte=65535"`
	NotifyBuffer int `koanf:"notify_buffer" validate:"gte=0"` // pending pushes per attached channel
}

type TelemetryConfig struct {
	MetricsPort        int `koanf:"metrics_port" validate:"gte=0,lte=65535"`
	GoroutineThreshold int `koanf:"goroutine_threshold"` // liveness check
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type AgentConfig struct {
	QueueHint int64 `koanf:"queue_hint"`
	BatchSize int64 `koanf:"batch_size"`
}

// LimiterConfig throttles exported events per event type. RPS <= 0 disables it.
type LimiterConfig struct {
	RPS     float64       `koanf:"rps" validate:"gte=0"`
	Burst   int           `koanf:"burst" validate:"gte=0"`
	IdleTTL time.Duration `koanf:"idle_ttl"`
}

type StdoutConfig struct {
	PrintCounter bool `koanf:"print_counter"`
}

type KafkaConfig struct {
	Brokers      []string `koanf:"brokers" validate:"dive,hostname_port"`
	Topic        string   `koanf:"topic"`
	RequiredAcks int16    `koanf:"required_acks" validate:"oneof=-1 0 1"` // 1 (default) or -1
	Version      string   `koanf:"version"`
	ClientID     string   `koanf:"client_id"`
}

type ExportersConfig struct {
	Enabled []string     `koanf:"enabled" validate:"dive,oneof=stdout kafka"`
	Stdout  StdoutConfig `koanf:"stdout"`
	Kafka   KafkaConfig  `koanf:"kafka"`
}

type RemoteConfig struct {
	Enabled    bool          `koanf:"enabled"`
	URL        string        `koanf:"url" validate:"omitempty,url"` // defaults to app.config_address
	Interval   time.Duration `koanf:"interval"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries uint64        `koanf:"max_retries"`
}

type Config struct {
	SchemaVersion string          `koanf:"schema_version"`
	App           AppConfig       `koanf:"app"`
	Transport     TransportConfig `koanf:"transport"`
	Telemetry     TelemetryConfig `koanf:"telemetry"`
	Log           LogConfig       `koanf:"log"`
	Agent         AgentConfig     `koanf:"agent"`
	Limiter       LimiterConfig   `koanf:"limiter"`
	Exporters     ExportersConfig `koanf:"exporters"`
	// Initial trace config served by getNetworkTraceConfig until a remote
	// refresh replaces it.
	NetworkTrace map[string]any `koanf:"network_trace"`
	RemoteConfig RemoteConfig   `koanf:"remote_config"`
}

// Load merges YAML (if present) with env-vars (prefix `RUMBRIDGE__`,
// delimiter `__`, e.g. RUMBRIDGE__TRANSPORT__GRPC_PORT).
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want %q)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config unmarshal: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("koanf")
	})
	return v
}

// Validate reports the first inconsistent setting, named by its config key.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			_, key, _ := strings.Cut(fe.Namespace(), ".")
			return fmt.Errorf("config %s: value %v fails %q", key, fe.Value(), fe.Tag()+paramSuffix(fe.Param()))
		}
		return fmt.Errorf("config: %w", err)
	}
	for _, name := range c.Exporters.Enabled {
		if name == "kafka" && len(c.Exporters.Kafka.Brokers) == 0 {
			return errors.New("exporters.kafka.brokers required when kafka exporter is enabled")
		}
	}
	if c.RemoteConfig.Enabled && c.RemoteConfig.URL == "" {
		return errors.New("remote_config.url or app.config_address required when remote_config is enabled")
	}
	return nil
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Config) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.Transport.GRPCPort == 0 {
		c.Transport.GRPCPort = 7070
	}
	if c.Transport.NotifyBuffer <= 0 {
		c.Transport.NotifyBuffer = 16
	}
	if c.Telemetry.MetricsPort == 0 {
		c.Telemetry.MetricsPort = 9100
	}
	if c.Telemetry.GoroutineThreshold <= 0 {
		c.Telemetry.GoroutineThreshold = 10_000
	}
	if c.Agent.QueueHint <= 0 {
		c.Agent.QueueHint = 1024
	}
	if c.Agent.BatchSize <= 0 {
		c.Agent.BatchSize = 64
	}
	if c.Limiter.IdleTTL == 0 {
		c.Limiter.IdleTTL = 10 * time.Minute
	}
	if len(c.Exporters.Enabled) == 0 {
		c.Exporters.Enabled = []string{"stdout"}
	}
	if c.Exporters.Kafka.Topic == "" {
		c.Exporters.Kafka.Topic = "rum-events"
	}
	if c.Exporters.Kafka.RequiredAcks == 0 {
		c.Exporters.Kafka.RequiredAcks = 1
	}
	if c.NetworkTrace == nil {
		c.NetworkTrace = map[string]any{}
	}
	if c.RemoteConfig.URL == "" {
		c.RemoteConfig.URL = c.App.ConfigAddress
	}
	if c.RemoteConfig.Interval == 0 {
		c.RemoteConfig.Interval = 5 * time.Minute
	}
	if c.RemoteConfig.Timeout == 0 {
		c.RemoteConfig.Timeout = 10 * time.Second
	}
	if c.RemoteConfig.MaxRetries == 0 {
		c.RemoteConfig.MaxRetries = 5
	}
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

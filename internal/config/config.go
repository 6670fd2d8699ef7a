// Package config loads vibedbg's configuration (§4.M): a YAML file with
// defaults applied for every omitted field, the same "defaults-then-override"
// shape as the teacher's config.go, followed by VIBEDBG_* environment
// variable overrides for container/CI use.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PipeConfig holds named-pipe server settings (component H).
type PipeConfig struct {
	Name              string        `yaml:"name"`
	MaxInstances      int           `yaml:"max_instances"`
	BufferSize        int           `yaml:"buffer_size"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// EngineConfig holds command engine settings (component F).
type EngineConfig struct {
	Workers            int           `yaml:"workers"`
	DefaultTimeout     time.Duration `yaml:"default_timeout"`
	LongRunningTimeout time.Duration `yaml:"long_running_timeout"`
	QueueCapacity      int           `yaml:"queue_capacity"`
}

// LoggingConfig holds structured logging settings (component J).
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig holds Prometheus metrics settings (component K).
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"` // loopback-only listen address, e.g. 127.0.0.1:9181
}

// TracingConfig holds OpenTelemetry tracing settings (component L).
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // otlp-http, stdout
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// BreakerConfig holds circuit breaker settings (component N).
type BreakerConfig struct {
	ErrorPct       float64       `yaml:"error_pct"`
	Window         time.Duration `yaml:"window"`
	OpenDuration   time.Duration `yaml:"open_duration"`
	HalfOpenProbes int           `yaml:"half_open_probes"`
}

// Config is the central configuration struct (§3 Config entity).
type Config struct {
	Pipe     PipeConfig     `yaml:"pipe"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Breaker  BreakerConfig  `yaml:"breaker"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipe: PipeConfig{
			Name:              `\\.\pipe\vibedbg_debug`,
			MaxInstances:      10,
			BufferSize:        1 << 16,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      5 * time.Second,
			HeartbeatInterval: 15 * time.Second,
		},
		Engine: EngineConfig{
			Workers:            2,
			DefaultTimeout:     30 * time.Second,
			LongRunningTimeout: 60 * time.Second,
			QueueCapacity:      256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "vibedbg",
			Addr:      "127.0.0.1:9181",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "otlp-http",
			Endpoint:    "localhost:4318",
			ServiceName: "vibedbg",
			SampleRate:  1.0,
		},
		Breaker: BreakerConfig{
			ErrorPct:       50,
			Window:         10 * time.Second,
			OpenDuration:   5 * time.Second,
			HalfOpenProbes: 3,
		},
	}
}

// LoadFromFile loads configuration from a YAML file, starting from
// DefaultConfig and overriding only the fields present in the file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv applies VIBEDBG_* environment variable overrides to cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("VIBEDBG_PIPE_NAME"); v != "" {
		cfg.Pipe.Name = v
	}
	if v := os.Getenv("VIBEDBG_PIPE_MAX_INSTANCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipe.MaxInstances = n
		}
	}
	if v := os.Getenv("VIBEDBG_PIPE_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipe.BufferSize = n
		}
	}
	if v := os.Getenv("VIBEDBG_PIPE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipe.ReadTimeout = d
		}
	}
	if v := os.Getenv("VIBEDBG_PIPE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipe.WriteTimeout = d
		}
	}
	if v := os.Getenv("VIBEDBG_PIPE_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipe.HeartbeatInterval = d
		}
	}

	if v := os.Getenv("VIBEDBG_ENGINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("VIBEDBG_ENGINE_DEFAULT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.DefaultTimeout = d
		}
	}
	if v := os.Getenv("VIBEDBG_ENGINE_LONG_RUNNING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.LongRunningTimeout = d
		}
	}
	if v := os.Getenv("VIBEDBG_ENGINE_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.QueueCapacity = n
		}
	}

	if v := os.Getenv("VIBEDBG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VIBEDBG_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("VIBEDBG_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("VIBEDBG_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
	if v := os.Getenv("VIBEDBG_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	if v := os.Getenv("VIBEDBG_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("VIBEDBG_TRACING_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	}
	if v := os.Getenv("VIBEDBG_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	if v := os.Getenv("VIBEDBG_TRACING_SERVICE_NAME"); v != "" {
		cfg.Tracing.ServiceName = v
	}
	if v := os.Getenv("VIBEDBG_TRACING_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracing.SampleRate = f
		}
	}

	if v := os.Getenv("VIBEDBG_BREAKER_ERROR_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Breaker.ErrorPct = f
		}
	}
	if v := os.Getenv("VIBEDBG_BREAKER_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Breaker.Window = d
		}
	}
	if v := os.Getenv("VIBEDBG_BREAKER_OPEN_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Breaker.OpenDuration = d
		}
	}
	if v := os.Getenv("VIBEDBG_BREAKER_HALF_OPEN_PROBES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Breaker.HalfOpenProbes = n
		}
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}

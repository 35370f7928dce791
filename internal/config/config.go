package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
)

// DefaultFactoryWaitTimeout bounds how long a lookup waits for a resource
// factory that has not been registered yet.
const DefaultFactoryWaitTimeout = 10 * time.Second

// DefaultExternalPrefix marks names resolved through the external service registry.
const DefaultExternalPrefix = "service:"

// Config configures the naming engine.
type Config struct {
	// DefaultResources enables the default-resource fallback for
	// auto-derived bindings.
	DefaultResources bool `yaml:"default_resources"`

	// FactoryWaitTimeout is how long a lookup may wait for a resource
	// factory to be registered. Once any caller exhausts it, waiting is
	// disabled for the rest of the process.
	FactoryWaitTimeout time.Duration `yaml:"factory_wait_timeout"`

	// ExternalPrefix marks names that live in the external service registry.
	ExternalPrefix string `yaml:"external_prefix"`

	Logging   logger.LoggingConfig `yaml:"logging"`
	Metrics   MetricsConfig        `yaml:"metrics"`
	Tracing   TracingConfig        `yaml:"tracing"`
	Inspect   InspectConfig        `yaml:"inspect"`
	Redis     RedisConfig          `yaml:"redis"`
	Factories FactoriesConfig      `yaml:"factories"`
}

// Factory registry backends.
const (
	FactoryBackendMemory = "memory"
	FactoryBackendVessel = "vessel"
)

// FactoriesConfig selects the resource factory registry and what the
// daemon registers in it at startup.
type FactoriesConfig struct {
	// Backend is "memory" (the engine's built-in registry) or "vessel".
	Backend string `yaml:"backend"`

	// Builders maps declared types to builder keys. They rebuild manifest
	// factory bindings and registry members.
	Builders map[string]string `yaml:"builders"`

	Resources []ResourceConfig `yaml:"resources"`
}

// ResourceConfig declares a resource factory registered under Name.
type ResourceConfig struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Properties map[string]string `yaml:"properties"`
}

// MetricsConfig configures prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// InspectConfig configures the introspection HTTP endpoint.
type InspectConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig configures the redis-backed service registry.
// An empty URL disables it.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`

	// ConnectAttempts and ConnectBackoff bound the initial connection.
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		DefaultResources:   true,
		FactoryWaitTimeout: DefaultFactoryWaitTimeout,
		ExternalPrefix:     DefaultExternalPrefix,
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "binder",
		},
		Inspect: InspectConfig{
			Addr: ":9411",
		},
		Redis: RedisConfig{
			KeyPrefix:       "binder:services:",
			ConnectAttempts: 3,
			ConnectBackoff:  200 * time.Millisecond,
		},
		Factories: FactoriesConfig{
			Backend: FactoryBackendMemory,
		},
	}
}

// ConfigOption is a functional option for configuring the engine.
type ConfigOption func(*Config)

// WithDefaultResources toggles the default-resource fallback.
func WithDefaultResources(enabled bool) ConfigOption {
	return func(c *Config) {
		c.DefaultResources = enabled
	}
}

// WithFactoryWaitTimeout sets the bounded factory wait.
func WithFactoryWaitTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.FactoryWaitTimeout = d
	}
}

// WithExternalPrefix sets the external service registry marker.
func WithExternalPrefix(prefix string) ConfigOption {
	return func(c *Config) {
		c.ExternalPrefix = prefix
	}
}

// WithMetrics toggles metrics and sets their namespace.
func WithMetrics(enabled bool, namespace string) ConfigOption {
	return func(c *Config) {
		c.Metrics = MetricsConfig{Enabled: enabled, Namespace: namespace}
	}
}

// WithTracing toggles span creation.
func WithTracing(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Tracing.Enabled = enabled
	}
}

// WithLogging sets the logging configuration.
func WithLogging(cfg logger.LoggingConfig) ConfigOption {
	return func(c *Config) {
		c.Logging = cfg
	}
}

// New builds a configuration from the defaults and the given options.
func New(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.FactoryWaitTimeout < 0 {
		return errors.ErrConfiguration("factory_wait_timeout must not be negative", nil).
			WithContext("factory_wait_timeout", c.FactoryWaitTimeout.String())
	}
	if strings.TrimSpace(c.ExternalPrefix) == "" {
		return errors.ErrConfiguration("external_prefix must not be empty", nil)
	}
	for _, reserved := range []string{"comp/", "module/", "app/", "global/"} {
		if strings.HasPrefix(c.ExternalPrefix, reserved) {
			return errors.ErrConfiguration(
				fmt.Sprintf("external_prefix %q collides with the %s namespace", c.ExternalPrefix, reserved), nil)
		}
	}
	if c.Redis.ConnectAttempts < 0 || c.Redis.ConnectBackoff < 0 {
		return errors.ErrConfiguration("redis connect_attempts and connect_backoff must not be negative", nil)
	}
	switch c.Factories.Backend {
	case FactoryBackendMemory, FactoryBackendVessel:
	default:
		return errors.ErrConfiguration("unknown factories.backend "+c.Factories.Backend, nil).
			WithContext("backend", c.Factories.Backend)
	}
	for i, r := range c.Factories.Resources {
		if r.Name == "" || r.Type == "" {
			return errors.ErrConfiguration(fmt.Sprintf("factories.resources[%d] needs a name and a type", i), nil)
		}
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.ErrConfiguration("metrics.namespace is required when metrics are enabled", nil)
	}
	return nil
}

// Parse decodes YAML on top of the defaults. Environment references such as
// ${BINDER_REDIS_URL} are expanded before decoding.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, errors.ErrConfiguration("failed to parse YAML configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.ErrConfiguration("failed to read configuration file "+path, err)
	}
	return Parse(data)
}

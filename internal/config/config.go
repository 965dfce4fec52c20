// Package config loads evprof settings from defaults, an optional YAML file,
// EVPROF_* environment variables and bound command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. EVPROF_LOG_LEVEL
const EnvPrefix = "EVPROF"

// Config is the fully resolved configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Run     RunConfig     `mapstructure:"run" yaml:"run"`
	Serve   ServeConfig   `mapstructure:"serve" yaml:"serve"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// RunConfig drives the example loop
type RunConfig struct {
	Iterations int           `mapstructure:"iterations" yaml:"iterations"`
	MaxDelay   time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Output     string        `mapstructure:"output" yaml:"output"`
}

type ServeConfig struct {
	Addr      string  `mapstructure:"addr" yaml:"addr"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// Output formats accepted by run.output
var outputFormats = map[string]bool{"table": true, "json": true, "yaml": true}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("run.iterations", 10)
	v.SetDefault("run.max_delay", 3*time.Second)
	v.SetDefault("run.output", "table")
	v.SetDefault("serve.addr", ":9100")
	v.SetDefault("serve.rate_limit", 20.0)
	v.SetDefault("serve.burst", 40)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "evprof")
	v.SetDefault("tracing.environment", "development")
}

// DefaultPath returns $HOME/.evprof/config.yaml, or "" if there is no home
// directory
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".evprof", "config.yaml")
}

// Load reads configuration into v and decodes it. An explicit path must
// exist; when path is empty the default location is used if present.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if def := DefaultPath(); def != "" {
		v.SetConfigFile(def)
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", def, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Run.Iterations < 0 {
		return fmt.Errorf("run.iterations must be >= 0, got %d", c.Run.Iterations)
	}
	if c.Run.MaxDelay < 0 {
		return fmt.Errorf("run.max_delay must be >= 0, got %s", c.Run.MaxDelay)
	}
	if !outputFormats[c.Run.Output] {
		return fmt.Errorf("run.output must be one of table, json, yaml; got %q", c.Run.Output)
	}
	if c.Serve.Addr == "" {
		return errors.New("serve.addr must not be empty")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}

package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/plugin"
)

const (
	// ConfigName is the configuration file name without extension.
	ConfigName = "formplug"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "FORMPLUG"

	// DefaultAddr is the default HTTP listen address.
	DefaultAddr = ":8080"

	// DefaultLocale is the default translation language.
	DefaultLocale = "en"
)

// Config represents the complete formplug configuration.
type Config struct {
	// Strategy is the default conflict resolution strategy.
	Strategy string `mapstructure:"strategy" yaml:"strategy"`

	// Locale is the fallback translation language.
	Locale string `mapstructure:"locale" yaml:"locale"`

	// Manifests lists plugin manifest files loaded at startup.
	Manifests []string `mapstructure:"manifests" yaml:"manifests,omitempty"`

	// Log configures logging.
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Server configures the HTTP API.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `mapstructure:"addr" yaml:"addr"`

	// ReadTimeout bounds reading a request, including async form validation.
	ReadTimeout time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Strategy: string(plugin.DefaultStrategy),
		Locale:   DefaultLocale,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:        DefaultAddr,
			ReadTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "formplug",
		},
	}
}

// Loader reads configuration through viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults and environment overrides
// registered.
func NewLoader() *Loader {
	v := viper.New()
	defaults := New()
	v.SetDefault("strategy", defaults.Strategy)
	v.SetDefault("locale", defaults.Locale)
	v.SetDefault("manifests", []string{})
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.readTimeout", defaults.Server.ReadTimeout)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.namespace", defaults.Metrics.Namespace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Viper exposes the underlying instance so commands can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the configuration. An empty path searches the working
// directory for formplug.{yaml,json,toml}; finding none is not an error.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName(ConfigName)
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.New(errors.CodeConfigParse).
				WithDetail("Failed to read " + displayPath(path) + ": " + err.Error()).
				WithSuggestion("Check that the file exists and is valid YAML, JSON or TOML")
		}
	}

	cfg := New()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}
	cfg.configPath = l.v.ConfigFileUsed()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func displayPath(path string) string {
	if path == "" {
		return ConfigName + " config"
	}
	return path
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	defaults := New()
	if c.Strategy == "" {
		c.Strategy = defaults.Strategy
	}
	if c.Locale == "" {
		c.Locale = defaults.Locale
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaults.Metrics.Namespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := plugin.ParseStrategy(c.Strategy); err != nil {
		return errors.New(errors.CodeConfigInvalid).
			WithDetailf("strategy %q is not one of error, warn, override, skip", c.Strategy)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New(errors.CodeConfigInvalid).
			WithDetailf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New(errors.CodeConfigInvalid).
			WithDetailf("log.format %q is not one of text, json", c.Log.Format)
	}
	if c.Server.ReadTimeout < 0 {
		return errors.New(errors.CodeConfigInvalid).WithDetail("server.readTimeout must not be negative")
	}
	return nil
}

// ResolutionStrategy returns the parsed default strategy.
func (c *Config) ResolutionStrategy() plugin.Strategy {
	s, err := plugin.ParseStrategy(c.Strategy)
	if err != nil {
		return plugin.DefaultStrategy
	}
	return s
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// ManifestPaths returns the manifest paths resolved against the config
// file's directory.
func (c *Config) ManifestPaths() []string {
	dir := ""
	if c.configPath != "" {
		dir = filepath.Dir(c.configPath)
	}
	paths := make([]string, len(c.Manifests))
	for i, p := range c.Manifests {
		if filepath.IsAbs(p) || dir == "" {
			paths[i] = p
		} else {
			paths[i] = filepath.Join(dir, p)
		}
	}
	return paths
}

// NewLogger builds the slog logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// SaveTo writes the configuration as YAML to path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(errors.CodeConfigParse).Wrap(err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}
	c.configPath = path
	return nil
}

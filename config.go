package formplug

import (
	"log/slog"

	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/metrics"
	"github.com/vango-dev/formplug/pkg/plugin"
	"github.com/vango-dev/formplug/pkg/registry"
	"github.com/vango-dev/formplug/pkg/validation"
)

// Config configures a Runtime.
type Config struct {
	// Logger is the structured logger for the runtime.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// DefaultStrategy resolves conflicts when RegisterPlugin is called
	// without plugin.WithStrategy. Default: warn.
	DefaultStrategy plugin.Strategy

	// BuiltinComponents seeds the component registry. Built-ins can never
	// be replaced or owned by a plugin.
	// Default: registry.DefaultBuiltinComponents().
	BuiltinComponents map[string]form.Component

	// Translator is used when a validation call passes a nil translator.
	Translator form.Translator

	// PluginObserver receives plugin lifecycle events.
	PluginObserver plugin.Observer

	// ValidationObserver receives validator cache and failure events.
	ValidationObserver validation.Observer

	// TracerName names the OpenTelemetry tracer (default: "formplug").
	TracerName string
}

// Option configures a Runtime.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDefaultStrategy sets the default conflict strategy.
func WithDefaultStrategy(s plugin.Strategy) Option {
	return func(c *Config) {
		c.DefaultStrategy = s
	}
}

// WithBuiltinComponents replaces the built-in component seed set.
func WithBuiltinComponents(builtins map[string]form.Component) Option {
	return func(c *Config) {
		c.BuiltinComponents = builtins
	}
}

// WithTranslator sets the fallback translator.
func WithTranslator(t form.Translator) Option {
	return func(c *Config) {
		c.Translator = t
	}
}

// WithMetrics reports plugin and validation events to a Prometheus
// collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) {
		c.PluginObserver = m
		c.ValidationObserver = m
	}
}

// WithTracerName sets the OpenTelemetry tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func defaultConfig() Config {
	return Config{
		Logger:          slog.Default(),
		DefaultStrategy: plugin.DefaultStrategy,
		TracerName:      "formplug",
	}
}

func (c Config) builtins() map[string]form.Component {
	if c.BuiltinComponents == nil {
		return registry.DefaultBuiltinComponents()
	}
	return c.BuiltinComponents
}

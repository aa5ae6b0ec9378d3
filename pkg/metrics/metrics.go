// Package metrics exports plugin lifecycle, conflict and validation
// counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/plugin"
	"github.com/vango-dev/formplug/pkg/registry"
	"github.com/vango-dev/formplug/pkg/validation"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "formplug").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "formplug",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the Prometheus metrics. It implements plugin.Observer
// and validation.Observer.
type Collector struct {
	pluginsRegistered   prometheus.Counter
	pluginsUnregistered prometheus.Counter
	pluginsInstalled    prometheus.Gauge
	registrationErrors  *prometheus.CounterVec
	conflicts           *prometheus.CounterVec
	itemsApplied        *prometheus.CounterVec
	itemsRejected       *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	handlerFailures     *prometheus.CounterVec
	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

var (
	_ plugin.Observer     = (*Collector)(nil)
	_ validation.Observer = (*Collector)(nil)
)

// New registers the metrics and returns the collector.
//
// Metrics collected (with the default namespace):
//   - formplug_plugins_registered_total
//   - formplug_plugins_unregistered_total
//   - formplug_plugins_installed
//   - formplug_plugin_registration_errors_total{code}
//   - formplug_conflicts_total{kind, strategy, outcome}
//   - formplug_items_applied_total{kind}
//   - formplug_items_rejected_total{kind}
//   - formplug_validator_cache_lookups_total{result}
//   - formplug_handler_failures_total{kind}
//   - formplug_http_requests_total{route, status}
//   - formplug_http_request_duration_seconds{route}
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Collector{
		pluginsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "plugins_registered_total",
			Help:        "Total number of successful plugin registrations",
			ConstLabels: config.ConstLabels,
		}),
		pluginsUnregistered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "plugins_unregistered_total",
			Help:        "Total number of plugin uninstalls",
			ConstLabels: config.ConstLabels,
		}),
		pluginsInstalled: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "plugins_installed",
			Help:        "Number of currently installed plugins",
			ConstLabels: config.ConstLabels,
		}),
		registrationErrors: counter("plugin_registration_errors_total", "Failed plugin registrations by error code", "code"),
		conflicts:          counter("conflicts_total", "Resolved registration conflicts", "kind", "strategy", "outcome"),
		itemsApplied:       counter("items_applied_total", "Items written by plugins", "kind"),
		itemsRejected:      counter("items_rejected_total", "Item writes refused, such as built-in overrides", "kind"),
		cacheLookups:       counter("validator_cache_lookups_total", "Field validator lookups by cache result", "result"),
		handlerFailures:    counter("handler_failures_total", "Validators that panicked or returned a non-validation error", "kind"),
		requests:           counter("http_requests_total", "HTTP requests by route and status", "route", "status"),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
	}
}

func (c *Collector) ConflictResolved(conflict plugin.Conflict, strategy plugin.Strategy, proceed bool) {
	outcome := "skipped"
	if proceed {
		outcome = "applied"
	}
	c.conflicts.WithLabelValues(string(conflict.Kind), string(strategy), outcome).Inc()
}

func (c *Collector) ItemApplied(key registry.Key, _ string) {
	c.itemsApplied.WithLabelValues(string(key.Kind)).Inc()
}

func (c *Collector) ItemRejected(key registry.Key, _ string) {
	c.itemsRejected.WithLabelValues(string(key.Kind)).Inc()
}

func (c *Collector) PluginRegistered(_ string, replaced bool) {
	c.pluginsRegistered.Inc()
	if !replaced {
		c.pluginsInstalled.Inc()
	}
}

func (c *Collector) PluginRegistrationFailed(_ string, err error) {
	code := "unknown"
	var fe *errors.Error
	if errors.As(err, &fe) && fe.Code != "" {
		code = fe.Code
	}
	c.registrationErrors.WithLabelValues(code).Inc()
}

func (c *Collector) PluginUnregistered(string) {
	c.pluginsUnregistered.Inc()
	c.pluginsInstalled.Dec()
}

func (c *Collector) PluginsReset() {
	c.pluginsInstalled.Set(0)
}

func (c *Collector) LookupCached(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) HandlerFailed(kind string) {
	c.handlerFailures.WithLabelValues(kind).Inc()
}

// Middleware records request counts and durations labelled by chi route
// pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		c.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

package plugin

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/registry"
)

const defaultTracerName = "formplug"

// Record is an installed plugin.
type Record struct {
	Plugin      *Plugin
	InstallID   uuid.UUID
	InstalledAt time.Time

	// Applied lists the keys actually written by this install.
	Applied []registry.Key
}

// Manager installs and uninstalls plugins into a Target.
type Manager struct {
	mu      sync.Mutex
	records map[string]*Record

	target   Target
	ledger   *Ledger
	defaults Options
	logger   *slog.Logger
	tracer   trace.Tracer
	observer Observer
	now      func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDefaultStrategy sets the strategy used when Register is called
// without WithStrategy.
func WithDefaultStrategy(s Strategy) ManagerOption {
	return func(m *Manager) {
		m.defaults.Strategy = s
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithTracerName sets the OpenTelemetry tracer name (default: "formplug").
func WithTracerName(name string) ManagerOption {
	return func(m *Manager) {
		if name != "" {
			m.tracer = otel.Tracer(name)
		}
	}
}

// NewManager creates a manager writing into target and recording owners
// in ledger.
func NewManager(target Target, ledger *Ledger, opts ...ManagerOption) *Manager {
	m := &Manager{
		records:  make(map[string]*Record),
		target:   target,
		ledger:   ledger,
		defaults: Options{Strategy: DefaultStrategy},
		logger:   slog.Default(),
		tracer:   otel.Tracer(defaultTracerName),
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ledger returns the ownership ledger.
func (m *Manager) Ledger() *Ledger {
	return m.ledger
}

// Register installs p.
//
// Installing an already installed name is resolved as a plugin-identity
// conflict before any item is looked at; a not-proceed verdict returns nil
// without touching anything. Item verdicts are all computed before the
// first write, so an error verdict leaves the target and ledger unchanged.
// A Setup error is returned after the items are applied and the plugin
// record is not stored.
func (m *Manager) Register(ctx context.Context, p *Plugin, opts ...Option) (err error) {
	o := m.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if o.Strategy == "" {
		o.Strategy = DefaultStrategy
	}

	name := ""
	if p != nil {
		name = p.Name
	}
	ctx, span := m.tracer.Start(ctx, "formplug.RegisterPlugin",
		trace.WithAttributes(
			attribute.String("formplug.plugin", name),
			attribute.String("formplug.strategy", string(o.Strategy)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			m.observer.PluginRegistrationFailed(name, err)
		}
		span.End()
	}()

	if err := p.validate(); err != nil {
		return err
	}
	logger := m.logger.With("plugin", p.Name)

	if m.Has(p.Name) {
		c := IdentityConflict(p.Name)
		proceed, err := m.decide(&c, o, logger)
		if err != nil {
			return err
		}
		if !proceed {
			span.SetAttributes(attribute.Bool("formplug.skipped", true))
			return nil
		}
	}

	items := p.Items()
	conflicts := make(map[registry.Key]*Conflict)
	for _, c := range Detect(p.Name, items, m.target, m.ledger) {
		c := c
		conflicts[c.Key] = &c
	}
	span.SetAttributes(attribute.Int("formplug.conflicts", len(conflicts)))

	plan := make([]Item, 0, len(items))
	for _, it := range items {
		proceed, err := m.decide(conflicts[it.Key], o, logger)
		if err != nil {
			return err
		}
		if proceed {
			plan = append(plan, it)
		}
	}

	applied := make([]registry.Key, 0, len(plan))
	for _, it := range plan {
		ok, err := m.target.Apply(it.Key, it.Value)
		if err != nil {
			if errors.CodeOf(err) == "" {
				err = errors.FromError(err, errors.CodeInvalidValue)
			}
			return err
		}
		if !ok {
			m.observer.ItemRejected(it.Key, p.Name)
			continue
		}
		m.ledger.Set(it.Key, p.Name)
		applied = append(applied, it.Key)
		m.observer.ItemApplied(it.Key, p.Name)
		logger.Debug("Registered item.", "key", it.Key.String())
	}

	if p.Setup != nil {
		if err := p.Setup(ctx); err != nil {
			return errors.New(errors.CodeSetupFailed).
				WithDetailf("plugin %q", p.Name).
				Wrap(err)
		}
	}

	rec := &Record{
		Plugin:      p,
		InstallID:   uuid.New(),
		InstalledAt: m.now(),
		Applied:     applied,
	}
	m.mu.Lock()
	_, replaced := m.records[p.Name]
	m.records[p.Name] = rec
	m.mu.Unlock()

	span.SetAttributes(
		attribute.String("formplug.install_id", rec.InstallID.String()),
		attribute.Int("formplug.applied", len(applied)),
	)
	m.observer.PluginRegistered(p.Name, replaced)
	logger.Info("Plugin registered.",
		"version", p.Version,
		"install_id", rec.InstallID.String(),
		"applied", len(applied),
		"skipped", len(items)-len(applied),
	)
	return nil
}

func (m *Manager) decide(c *Conflict, o Options, logger *slog.Logger) (bool, error) {
	proceed, err := Decide(c, o, logger)
	if c != nil {
		m.observer.ConflictResolved(*c, o.Strategy, proceed)
	}
	return proceed, err
}

// UnregisterOptions control Unregister.
type UnregisterOptions struct {
	// RemoveRegistrations releases the plugin's ledger entries. Stored
	// values stay in place.
	RemoveRegistrations bool

	// Purge additionally deletes stored values still owned by the plugin.
	Purge bool
}

// UnregisterOption configures UnregisterOptions.
type UnregisterOption func(*UnregisterOptions)

// WithRemoveRegistrations releases ownership of every item the plugin
// declared. Stored values are left untouched, so consumers already using
// them keep working.
func WithRemoveRegistrations() UnregisterOption {
	return func(o *UnregisterOptions) {
		o.RemoveRegistrations = true
	}
}

// WithPurge releases ownership and deletes the stored values the plugin
// still owns.
func WithPurge() UnregisterOption {
	return func(o *UnregisterOptions) {
		o.RemoveRegistrations = true
		o.Purge = true
	}
}

// Unregister uninstalls the named plugin and reports whether it was
// installed. Cleanup errors are logged and do not stop the uninstall.
func (m *Manager) Unregister(ctx context.Context, name string, opts ...UnregisterOption) bool {
	var o UnregisterOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := m.tracer.Start(ctx, "formplug.UnregisterPlugin",
		trace.WithAttributes(
			attribute.String("formplug.plugin", name),
			attribute.Bool("formplug.remove_registrations", o.RemoveRegistrations),
			attribute.Bool("formplug.purge", o.Purge),
		),
	)
	defer span.End()

	m.mu.Lock()
	rec, ok := m.records[name]
	m.mu.Unlock()
	if !ok {
		span.SetAttributes(attribute.Bool("formplug.found", false))
		return false
	}
	logger := m.logger.With("plugin", name)

	if rec.Plugin.Cleanup != nil {
		if err := rec.Plugin.Cleanup(ctx); err != nil {
			span.RecordError(err)
			logger.Error("Plugin cleanup failed.", "error", err)
		}
	}

	if o.RemoveRegistrations {
		released, purged := 0, 0
		for _, key := range rec.Plugin.Keys() {
			if o.Purge {
				if owner, owned := m.ledger.Owner(key); owned && owner == name && m.target.Remove(key) {
					purged++
				}
			}
			if m.ledger.Release(key, name) {
				released++
			}
		}
		logger.Debug("Released plugin registrations.", "released", released, "purged", purged)
	}

	m.mu.Lock()
	delete(m.records, name)
	m.mu.Unlock()

	m.observer.PluginUnregistered(name)
	logger.Info("Plugin unregistered.", "install_id", rec.InstallID.String())
	return true
}

// Get returns the installed plugin with the given name.
func (m *Manager) Get(name string) (*Plugin, bool) {
	rec, ok := m.Record(name)
	if !ok {
		return nil, false
	}
	return rec.Plugin, true
}

// Record returns the install record for the named plugin.
func (m *Manager) Record(name string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[name]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Has reports whether the named plugin is installed.
func (m *Manager) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[name]
	return ok
}

// All returns the installed plugins sorted by name.
func (m *Manager) All() []*Plugin {
	m.mu.Lock()
	plugins := make([]*Plugin, 0, len(m.records))
	for _, rec := range m.records {
		plugins = append(plugins, rec.Plugin)
	}
	m.mu.Unlock()
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins
}

// Reset forgets every installed plugin and owner without running Cleanup.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.records = make(map[string]*Record)
	m.mu.Unlock()
	m.ledger.Reset()
	m.observer.PluginsReset()
}

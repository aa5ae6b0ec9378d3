package formplug

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/plugin"
	"github.com/vango-dev/formplug/pkg/registry"
	"github.com/vango-dev/formplug/pkg/validation"
)

// Runtime owns every registry, the ownership ledger, the plugin manager
// and the validator resolver. Each embedding (or test) constructs its own.
//
// Register and unregister calls are not atomic with respect to each other;
// callers installing plugins from several goroutines must serialize them.
type Runtime struct {
	config Config
	logger *slog.Logger

	components       *registry.ComponentStore
	customValidators *registry.Categorized[form.FieldValidator]
	typeValidators   *registry.Store[form.FieldValidator]
	formValidators   *registry.Store[form.FormValidator]
	handlers         *registry.Store[form.SubmissionHandler]

	ledger   *plugin.Ledger
	plugins  *plugin.Manager
	resolver *validation.Resolver
}

// New creates a runtime seeded with the built-in components.
func New(opts ...Option) *Runtime {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	rt := &Runtime{
		config:           config,
		logger:           config.Logger,
		components:       registry.NewComponentStore(config.builtins(), config.Logger),
		customValidators: registry.NewCategorized[form.FieldValidator](),
		typeValidators:   registry.NewStore[form.FieldValidator](),
		formValidators:   registry.NewStore[form.FormValidator](),
		handlers:         registry.NewStore[form.SubmissionHandler](),
		ledger:           plugin.NewLedger(),
	}
	rt.plugins = plugin.NewManager(target{rt}, rt.ledger,
		plugin.WithLogger(config.Logger),
		plugin.WithDefaultStrategy(config.DefaultStrategy),
		plugin.WithObserver(config.PluginObserver),
		plugin.WithTracerName(config.TracerName),
	)
	rt.resolver = validation.NewResolver(rt,
		validation.WithLogger(config.Logger),
		validation.WithObserver(config.ValidationObserver),
		validation.WithTracerName(config.TracerName),
	)
	return rt
}

// Reset returns the runtime to its freshly constructed state: built-ins
// only, no plugins, no owners and an empty validator cache. Cleanup hooks
// are not run.
func (rt *Runtime) Reset() {
	rt.components.Reset()
	rt.customValidators.Reset()
	rt.typeValidators.Reset()
	rt.formValidators.Reset()
	rt.handlers.Reset()
	rt.plugins.Reset()
	rt.resolver.ClearCache()
	rt.logger.Debug("Runtime reset.")
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// =============================================================================
// Plugins
// =============================================================================

// RegisterPlugin installs p. See plugin.Manager.Register.
func (rt *Runtime) RegisterPlugin(ctx context.Context, p *plugin.Plugin, opts ...plugin.Option) error {
	return rt.plugins.Register(ctx, p, opts...)
}

// UnregisterPlugin uninstalls the named plugin and reports whether it was
// installed. See plugin.Manager.Unregister.
func (rt *Runtime) UnregisterPlugin(ctx context.Context, name string, opts ...plugin.UnregisterOption) bool {
	return rt.plugins.Unregister(ctx, name, opts...)
}

// GetPlugin returns the installed plugin with the given name.
func (rt *Runtime) GetPlugin(name string) (*plugin.Plugin, bool) {
	return rt.plugins.Get(name)
}

// HasPlugin reports whether the named plugin is installed.
func (rt *Runtime) HasPlugin(name string) bool {
	return rt.plugins.Has(name)
}

// AllPlugins returns the installed plugins sorted by name.
func (rt *Runtime) AllPlugins() []*plugin.Plugin {
	return rt.plugins.All()
}

// PluginRecord returns the install record of the named plugin.
func (rt *Runtime) PluginRecord(name string) (plugin.Record, bool) {
	return rt.plugins.Record(name)
}

// Owner returns the plugin owning key.
func (rt *Runtime) Owner(key registry.Key) (string, bool) {
	return rt.ledger.Owner(key)
}

// Ownership returns a snapshot of the ownership ledger.
func (rt *Runtime) Ownership() []plugin.Entry {
	return rt.ledger.Entries()
}

// =============================================================================
// Components
// =============================================================================

// RegisterComponents registers each component directly, bypassing
// ownership, and returns the names refused because they are built in.
func (rt *Runtime) RegisterComponents(components map[string]form.Component) []string {
	var rejected []string
	for _, name := range registry.SortedNames(components) {
		if !rt.components.Register(name, components[name]) {
			rejected = append(rejected, name)
		}
	}
	return rejected
}

// RegisterComponent registers one component directly. It reports false
// when name is built in.
func (rt *Runtime) RegisterComponent(name string, c form.Component) bool {
	return rt.components.Register(name, c)
}

// Component returns the component registered under name.
func (rt *Runtime) Component(name string) (form.Component, bool) {
	return rt.components.Get(name)
}

// Components returns the registered component names, built-ins included.
func (rt *Runtime) Components() []string {
	return rt.components.List()
}

// IsBuiltinComponent reports whether name is a built-in component.
func (rt *Runtime) IsBuiltinComponent(name string) bool {
	return rt.components.IsBuiltin(name)
}

// =============================================================================
// Validators and handlers
// =============================================================================

// RegisterFieldCustomValidator registers fn under (category, name) and
// drops any cached lookup for that pair.
func (rt *Runtime) RegisterFieldCustomValidator(category, name string, fn form.FieldValidator) {
	rt.customValidators.Register(category, name, fn)
	rt.resolver.Invalidate(category, name)
}

// FieldCustomValidator returns the validator registered under
// (category, name), bypassing the resolver cache.
func (rt *Runtime) FieldCustomValidator(category, name string) (form.FieldValidator, bool) {
	return rt.customValidators.Get(category, name)
}

// FieldCustomValidators returns the validator names in category.
func (rt *Runtime) FieldCustomValidators(category string) []string {
	return rt.customValidators.List(category)
}

// FieldValidatorCategories returns the categories holding custom validators.
func (rt *Runtime) FieldValidatorCategories() []string {
	return rt.customValidators.Categories()
}

// RegisterFieldTypeValidator registers fn for a field type.
func (rt *Runtime) RegisterFieldTypeValidator(fieldType string, fn form.FieldValidator) {
	rt.typeValidators.Register(fieldType, fn)
}

// FieldTypeValidator returns the validator for a field type.
func (rt *Runtime) FieldTypeValidator(fieldType string) (form.FieldValidator, bool) {
	return rt.typeValidators.Get(fieldType)
}

// FieldTypeValidators returns the field types with a validator.
func (rt *Runtime) FieldTypeValidators() []string {
	return rt.typeValidators.List()
}

// RegisterFormValidator registers a form-level validator.
func (rt *Runtime) RegisterFormValidator(name string, v form.FormValidator) {
	rt.formValidators.Register(name, v)
}

// FormValidator returns the form validator registered under name.
func (rt *Runtime) FormValidator(name string) (form.FormValidator, bool) {
	return rt.formValidators.Get(name)
}

// FormValidators returns the registered form validator names.
func (rt *Runtime) FormValidators() []string {
	return rt.formValidators.List()
}

// RegisterSubmissionHandler registers a submission handler.
func (rt *Runtime) RegisterSubmissionHandler(name string, h form.SubmissionHandler) {
	rt.handlers.Register(name, h)
}

// SubmissionHandler returns the handler registered under name.
func (rt *Runtime) SubmissionHandler(name string) (form.SubmissionHandler, bool) {
	return rt.handlers.Get(name)
}

// SubmissionHandlers returns the registered handler names.
func (rt *Runtime) SubmissionHandlers() []string {
	return rt.handlers.List()
}

// ClearValidationCache drops every cached validator lookup.
func (rt *Runtime) ClearValidationCache() {
	rt.resolver.ClearCache()
}

// =============================================================================
// Validation and submission
// =============================================================================

func (rt *Runtime) translator(t form.Translator) form.Translator {
	if t == nil {
		return rt.config.Translator
	}
	return t
}

// ValidateField resolves ref within namespace and validates value. It
// returns the error message, or "" when valid.
func (rt *Runtime) ValidateField(namespace, field string, ref form.Ref, value any, t form.Translator) string {
	return rt.resolver.ValidateField(namespace, field, ref, value, rt.translator(t))
}

// ValidateForm runs the named form validator. It returns nil when valid.
func (rt *Runtime) ValidateForm(ctx context.Context, name string, values form.Values, t form.Translator) []string {
	return rt.resolver.ValidateForm(ctx, name, values, rt.translator(t))
}

// Validate validates a form instance against def.
func (rt *Runtime) Validate(ctx context.Context, def form.Definition, values form.Values, t form.Translator) validation.Result {
	return rt.resolver.Validate(ctx, def, values, rt.translator(t))
}

// Submit validates values and, when they are valid, passes them to the
// definition's submission handler. The validation result is returned in
// both cases.
func (rt *Runtime) Submit(ctx context.Context, def form.Definition, instance string, values form.Values, t form.Translator) (validation.Result, error) {
	res := rt.Validate(ctx, def, values, t)
	if !res.Valid() {
		return res, errors.New(errors.CodeSubmitInvalid).
			WithDetailf("form %q: %d field errors, %d form errors", def.Name, len(res.Fields), len(res.Form))
	}

	h, ok := rt.handlers.Get(def.Submit)
	if !ok || h == nil {
		return res, errors.New(errors.CodeHandlerNotFound).
			WithDetailf("form %q names submission handler %q", def.Name, def.Submit).
			WithSuggestion("Register the handler with RegisterSubmissionHandler or through a plugin")
	}
	if err := invokeHandler(ctx, h, def, instance, values); err != nil {
		return res, errors.FromError(err, errors.CodeHandlerFailed)
	}
	rt.logger.Debug("Form submitted.", "form", def.Name, "instance", instance, "handler", def.Submit)
	return res, nil
}

func invokeHandler(ctx context.Context, h form.SubmissionHandler, def form.Definition, instance string, values form.Values) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h(ctx, def, instance, values)
}

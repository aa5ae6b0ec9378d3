package registry

import (
	"log/slog"
	"sort"

	"github.com/vango-dev/formplug/internal/errors"
)

// DefaultBuiltins are the widget types every runtime starts with.
var DefaultBuiltins = []string{
	"checkbox",
	"date",
	"email",
	"file",
	"hidden",
	"number",
	"password",
	"radio",
	"select",
	"text",
	"textarea",
}

// Builtin is the handle stored for a built-in widget type.
type Builtin string

// DefaultBuiltinComponents returns a seed map with a Builtin handle for
// each of DefaultBuiltins.
func DefaultBuiltinComponents() map[string]any {
	m := make(map[string]any, len(DefaultBuiltins))
	for _, name := range DefaultBuiltins {
		m[name] = Builtin(name)
	}
	return m
}

// ComponentStore holds widgets by type name. Names in its built-in seed
// set can never be overwritten, whoever asks.
type ComponentStore struct {
	store    *Store[any]
	builtins map[string]any
	logger   *slog.Logger
}

// NewComponentStore creates a store seeded with builtins.
// If logger is nil, slog.Default() is used.
func NewComponentStore(builtins map[string]any, logger *slog.Logger) *ComponentStore {
	if logger == nil {
		logger = slog.Default()
	}
	seed := make(map[string]any, len(builtins))
	for name, v := range builtins {
		seed[name] = v
	}
	c := &ComponentStore{
		store:    NewStore[any](),
		builtins: seed,
		logger:   logger,
	}
	c.Reset()
	return c
}

// Register stores v under name unless name is built in. A rejected write
// is logged as a warning and reported as false.
func (c *ComponentStore) Register(name string, v any) bool {
	if _, builtin := c.builtins[name]; builtin {
		err := errors.New(errors.CodeBuiltinOverride).WithDetailf("component %q is built in", name)
		c.logger.Warn("Refusing to override built-in component.", "component", name, "code", err.Code, "error", err)
		return false
	}
	c.store.Register(name, v)
	return true
}

// Get returns the component registered under name.
func (c *ComponentStore) Get(name string) (any, bool) {
	return c.store.Get(name)
}

// Has reports whether name is registered, built-ins included.
func (c *ComponentStore) Has(name string) bool {
	return c.store.Has(name)
}

// List returns every registered name, sorted.
func (c *ComponentStore) List() []string {
	return c.store.List()
}

// Len returns the number of registered components.
func (c *ComponentStore) Len() int {
	return c.store.Len()
}

// Delete removes a non-built-in component.
func (c *ComponentStore) Delete(name string) bool {
	if c.IsBuiltin(name) {
		return false
	}
	return c.store.Delete(name)
}

// IsBuiltin reports whether name belongs to the seed set.
func (c *ComponentStore) IsBuiltin(name string) bool {
	_, ok := c.builtins[name]
	return ok
}

// Builtins returns the seed set names, sorted.
func (c *ComponentStore) Builtins() []string {
	names := make([]string, 0, len(c.builtins))
	for name := range c.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every plugin-registered component and restores the seed set.
func (c *ComponentStore) Reset() {
	c.store.Reset()
	for name, v := range c.builtins {
		c.store.Register(name, v)
	}
}

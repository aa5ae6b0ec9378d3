package plugin

import "github.com/vango-dev/formplug/pkg/registry"

// Observer receives lifecycle events from a Manager.
type Observer interface {
	// ConflictResolved is called for every detected conflict with the
	// verdict reached.
	ConflictResolved(c Conflict, strategy Strategy, proceed bool)

	// ItemApplied is called after an item is written and owned.
	ItemApplied(key registry.Key, plugin string)

	// ItemRejected is called when the target refuses a write.
	ItemRejected(key registry.Key, plugin string)

	// PluginRegistered is called when a plugin record is stored. replaced
	// is true when an override re-registration superseded an installed
	// record of the same name.
	PluginRegistered(name string, replaced bool)
	PluginRegistrationFailed(name string, err error)
	PluginUnregistered(name string)

	// PluginsReset is called when the manager forgets every plugin.
	PluginsReset()
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ConflictResolved(Conflict, Strategy, bool) {}
func (NopObserver) ItemApplied(registry.Key, string)          {}
func (NopObserver) ItemRejected(registry.Key, string)         {}
func (NopObserver) PluginRegistered(string, bool)             {}
func (NopObserver) PluginRegistrationFailed(string, error)    {}
func (NopObserver) PluginUnregistered(string)                 {}
func (NopObserver) PluginsReset()                             {}

var _ Observer = NopObserver{}

package plugin

import (
	"context"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/registry"
)

// Plugin is a named, versioned bundle of extension items plus optional
// lifecycle hooks. Name is its identity.
type Plugin struct {
	Name        string
	Version     string
	Description string

	// Components maps widget type names to widget handles.
	Components map[string]form.Component

	// FieldCustomValidators maps category → validator name → validator.
	FieldCustomValidators map[string]map[string]form.FieldValidator

	// FieldTypeValidators maps field type names to validators.
	FieldTypeValidators map[string]form.FieldValidator

	// FormValidators maps form validator names to validators.
	FormValidators map[string]form.FormValidator

	// SubmissionHandlers maps handler names to handlers.
	SubmissionHandlers map[string]form.SubmissionHandler

	// Setup runs after the plugin's items are applied.
	Setup func(ctx context.Context) error

	// Cleanup runs when the plugin is unregistered.
	Cleanup func(ctx context.Context) error
}

// Item is one declared registration with its explicit kind tag.
type Item struct {
	Key   registry.Key
	Value any
}

// Items flattens the plugin's typed maps into items, ordered by kind, then
// category, then name.
func (p *Plugin) Items() []Item {
	var items []Item
	for _, name := range registry.SortedNames(p.Components) {
		items = append(items, Item{registry.NewKey(registry.KindComponent, name), p.Components[name]})
	}
	for _, category := range registry.SortedNames(p.FieldCustomValidators) {
		validators := p.FieldCustomValidators[category]
		for _, name := range registry.SortedNames(validators) {
			items = append(items, Item{registry.CategoryKey(registry.KindFieldCustomValidator, category, name), validators[name]})
		}
	}
	for _, name := range registry.SortedNames(p.FieldTypeValidators) {
		items = append(items, Item{registry.NewKey(registry.KindFieldTypeValidator, name), p.FieldTypeValidators[name]})
	}
	for _, name := range registry.SortedNames(p.FormValidators) {
		items = append(items, Item{registry.NewKey(registry.KindFormValidator, name), p.FormValidators[name]})
	}
	for _, name := range registry.SortedNames(p.SubmissionHandlers) {
		items = append(items, Item{registry.NewKey(registry.KindSubmissionHandler, name), p.SubmissionHandlers[name]})
	}
	return items
}

// Keys returns the keys of every declared item.
func (p *Plugin) Keys() []registry.Key {
	items := p.Items()
	keys := make([]registry.Key, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

// validate checks the plugin can be installed at all.
func (p *Plugin) validate() error {
	if p == nil {
		return errors.New(errors.CodeInvalidPlugin).WithDetail("plugin is nil")
	}
	if p.Name == "" {
		return errors.New(errors.CodeInvalidPlugin).
			WithDetail("plugin name is empty").
			WithSuggestion("Give every plugin a unique Name")
	}
	for _, it := range p.Items() {
		if it.Key.IsZero() {
			return errors.New(errors.CodeInvalidPlugin).
				WithDetailf("plugin %q declares an item with an incomplete key %s", p.Name, it.Key)
		}
	}
	return nil
}

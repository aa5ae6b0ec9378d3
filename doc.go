// Package formplug is a plugin registration and conflict-resolution
// engine for form runtimes.
//
// Plugins contribute widgets, field validators, form validators and
// submission handlers to a Runtime. Every name a plugin writes is recorded
// in an ownership ledger, and a second plugin claiming the same name is
// resolved by strategy:
//
//	rt := formplug.New(formplug.WithLogger(logger))
//
//	err := rt.RegisterPlugin(ctx, rating.New())
//	err = rt.RegisterPlugin(ctx, fancyRating, plugin.WithStrategy(plugin.StrategyOverride))
//
// Built-in components (text, number, select, ...) are seeded at
// construction and can never be replaced. Each Runtime owns its state;
// Reset returns it to the freshly constructed state.
package formplug

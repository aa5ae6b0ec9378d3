// Package plugin installs and uninstalls plugins into a shared runtime and
// decides what happens when two plugins claim the same name.
//
// # Flow
//
// Manager.Register runs, in order:
//
//  1. The plugin-identity check: installing a name that is already
//     installed is itself a conflict and is resolved first.
//  2. Detect: every declared item is compared against the target's
//     current contents and the ownership Ledger. Only keys the ledger
//     tracks can conflict; built-ins and items registered outside the
//     plugin path are invisible to detection.
//  3. Decide: each item gets a proceed/skip verdict from the resolution
//     strategy (error, warn, override, skip) and the optional OnConflict
//     veto. All verdicts are computed before anything is written, so an
//     error verdict leaves the runtime untouched.
//  4. Apply: accepted items are written to the target and the ledger
//     records the plugin as owner. Built-in components refuse the write
//     and gain no owner.
//  5. Setup runs, then the plugin record is stored.
//
// # Usage
//
//	m := plugin.NewManager(target, plugin.NewLedger())
//	err := m.Register(ctx, &plugin.Plugin{
//	    Name:       "ratings",
//	    Version:    "1.0.0",
//	    Components: map[string]form.Component{"rating": ratingWidget},
//	}, plugin.WithStrategy(plugin.StrategyOverride))
package plugin

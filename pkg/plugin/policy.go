package plugin

import (
	"log/slog"
	"strings"

	"github.com/vango-dev/formplug/internal/errors"
)

// Strategy governs what happens when a declared item conflicts with one
// owned by another plugin.
type Strategy string

const (
	// StrategyError aborts the registration with an error.
	StrategyError Strategy = "error"
	// StrategyWarn logs a warning and skips the item.
	StrategyWarn Strategy = "warn"
	// StrategyOverride logs and replaces the item, transferring ownership.
	StrategyOverride Strategy = "override"
	// StrategySkip skips the item silently.
	StrategySkip Strategy = "skip"
)

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = StrategyWarn

// Strategies returns every known strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyError, StrategyWarn, StrategyOverride, StrategySkip}
}

// ParseStrategy parses a strategy name. The empty string yields
// DefaultStrategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return DefaultStrategy, nil
	case StrategyError, StrategyWarn, StrategyOverride, StrategySkip:
		return st, nil
	default:
		return "", errors.New(errors.CodeUnknownStrategy).WithDetailf("unknown strategy %q", s)
	}
}

// Options control conflict resolution for one Register call.
type Options struct {
	Strategy Strategy

	// OnConflict, when set, is consulted before the strategy. Returning
	// false skips the item without consulting the strategy.
	OnConflict func(Conflict) bool
}

// Option configures Options.
type Option func(*Options)

// WithStrategy sets the resolution strategy.
func WithStrategy(s Strategy) Option {
	return func(o *Options) {
		o.Strategy = s
	}
}

// WithOnConflict sets the veto callback.
func WithOnConflict(fn func(Conflict) bool) Option {
	return func(o *Options) {
		o.OnConflict = fn
	}
}

// Decide returns whether the item behind c should be applied. A nil
// conflict always proceeds.
func Decide(c *Conflict, opts Options, logger *slog.Logger) (bool, error) {
	if c == nil {
		return true, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OnConflict != nil && !opts.OnConflict(*c) {
		logger.Debug("Conflict vetoed by callback.", conflictAttrs(c)...)
		return false, nil
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = DefaultStrategy
	}

	switch strategy {
	case StrategyError:
		return false, conflictError(c)
	case StrategyWarn:
		logger.Warn("Registration conflict, keeping existing item.", conflictAttrs(c)...)
		return false, nil
	case StrategyOverride:
		logger.Info("Registration conflict, overriding existing item.", conflictAttrs(c)...)
		return true, nil
	case StrategySkip:
		return false, nil
	default:
		return false, errors.New(errors.CodeUnknownStrategy).WithDetailf("unknown strategy %q", strategy)
	}
}

func conflictError(c *Conflict) *errors.Error {
	if c.Kind == KindPlugin {
		return errors.New(errors.CodePluginConflict).
			WithDetailf("plugin %q is already installed", c.Name).
			WithSuggestion("Unregister the plugin first, or register it with the override strategy")
	}
	return errors.New(errors.CodeItemConflict).
		WithDetailf("%s %q is owned by plugin %q; plugin %q cannot register it", c.Kind, c.Name, c.ExistingOwner, c.NewOwner).
		WithSuggestion("Use the override strategy to replace it, or warn/skip to keep the existing item")
}

func conflictAttrs(c *Conflict) []any {
	return []any{
		"kind", string(c.Kind),
		"key", c.Name,
		"existing_owner", c.ExistingOwner,
		"new_owner", c.NewOwner,
	}
}

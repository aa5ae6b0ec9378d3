// Package errors provides structured, actionable errors for formplug.
//
// Every failure a developer can hit while wiring plugins carries a stable
// code (e.g., "E202") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// Call sites enrich the registered template with the concrete plugin,
// resource kind and key that collided:
//
//	err := errors.New(errors.CodeItemConflict).
//	    WithDetail(`component "rating" is owned by "A", "B" tried to register it`).
//	    WithSuggestion("Use the override strategy to replace it")
//
// Errors match by code, so callers can test for a class of failure
// without caring about the detail text:
//
//	if errors.Is(err, errors.New(errors.CodeItemConflict)) { ... }
//
// # Error Categories
//
//   - conflict: registration collisions between plugins
//   - plugin: malformed plugins and failing lifecycle hooks
//   - validation: handler invocation failures
//   - config: configuration loading problems
package errors

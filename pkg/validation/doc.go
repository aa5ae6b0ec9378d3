// Package validation resolves validator references and invokes validators
// without letting their failures escape.
//
// A field's reference is resolved against the current definition's
// namespace:
//
//	"ageCheck"            → ("signup", "ageCheck")
//	["shared", "ageCheck"] → ("shared", "ageCheck")
//	["ageCheck"]          → ("signup", "ageCheck")
//
// Custom validator lookups are cached per (category, name), including
// misses. Entries live until Invalidate or ClearCache.
package validation

// Package registry provides the name-addressed stores plugins register
// into.
//
// The stores are pure storage: Register overwrites unconditionally and no
// ownership or conflict policy is applied here. Policy lives in package
// plugin, which decides whether a write may happen before it reaches a
// store.
//
// Each resource kind has its own store:
//
//   - ComponentStore: widgets by type name, with an immutable built-in set
//   - Categorized: field custom validators, scoped by a category (the form
//     definition namespace)
//   - Store: field type validators, form validators, submission handlers
//
// A Key addresses one registration across all kinds:
//
//	registry.Key{Kind: registry.KindFieldCustomValidator, Category: "signup", Name: "ageCheck"}
package registry

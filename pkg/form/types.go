package form

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Values holds the submitted values of a form instance keyed by field name.
type Values map[string]any

// Get returns the value stored under field, or nil.
func (v Values) Get(field string) any {
	if v == nil {
		return nil
	}
	return v[field]
}

// Translator turns a message key and its arguments into display text.
type Translator func(key string, args ...any) string

// T translates key. A nil Translator returns key unchanged, or formats it
// with args when any are given.
func (t Translator) T(key string, args ...any) string {
	if t == nil {
		if len(args) == 0 {
			return key
		}
		return format(key, args)
	}
	return t(key, args...)
}

func format(key string, args []any) string {
	return fmt.Sprintf(key, args...)
}

// Component is an opaque widget handle registered under a type name.
// The runtime stores and returns it but never inspects it.
type Component = any

// FieldValidator validates a single field value.
// It returns nil when the value is valid.
type FieldValidator func(field string, value any, t Translator) error

// SubmissionHandler receives a validated form instance.
type SubmissionHandler func(ctx context.Context, def Definition, instance string, values Values) error

// SyncFormFunc validates a whole form and returns its error messages.
type SyncFormFunc func(values Values, t Translator) []string

// AsyncFormFunc validates a whole form out of band, for example against
// a remote service.
type AsyncFormFunc func(ctx context.Context, values Values, t Translator) ([]string, error)

// FormValidator is either synchronous or asynchronous. The variant is
// fixed when the validator is built with Sync or Async.
type FormValidator struct {
	sync  SyncFormFunc
	async AsyncFormFunc
}

// Sync builds a synchronous form validator.
func Sync(fn SyncFormFunc) FormValidator {
	return FormValidator{sync: fn}
}

// Async builds an asynchronous form validator.
func Async(fn AsyncFormFunc) FormValidator {
	return FormValidator{async: fn}
}

// IsZero reports whether the validator has no function.
func (v FormValidator) IsZero() bool {
	return v.sync == nil && v.async == nil
}

// IsAsync reports whether the validator was built with Async.
func (v FormValidator) IsAsync() bool {
	return v.async != nil
}

// SyncFunc returns the synchronous function, if that is the variant.
func (v FormValidator) SyncFunc() (SyncFormFunc, bool) {
	return v.sync, v.sync != nil
}

// AsyncFunc returns the asynchronous function, if that is the variant.
func (v FormValidator) AsyncFunc() (AsyncFormFunc, bool) {
	return v.async, v.async != nil
}

// Ref names a custom field validator. A single element is a name in the
// current definition's namespace; two elements are (category, name).
type Ref []string

// String renders the reference for logs.
func (r Ref) String() string {
	switch len(r) {
	case 0:
		return "<none>"
	case 1:
		return r[0]
	default:
		return r[0] + ":" + r[1]
	}
}

// UnmarshalYAML accepts either a scalar name or a sequence of parts.
func (r *Ref) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = Ref{node.Value}
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := node.Decode(&parts); err != nil {
			return fmt.Errorf("form: validator reference at line %d: %w", node.Line, err)
		}
		*r = parts
		return nil
	default:
		return fmt.Errorf("form: validator reference at line %d must be a string or a list of strings", node.Line)
	}
}

// UnmarshalJSON accepts either a string or an array of strings.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*r = Ref{name}
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("form: validator reference must be a string or an array of strings")
	}
	*r = parts
	return nil
}

// Field describes one input of a form definition.
type Field struct {
	// Name is the key of the field in Values.
	Name string `yaml:"name" json:"name"`

	// Type selects the widget and the field-type validator.
	Type string `yaml:"type" json:"type"`

	// Required rejects empty values before any other validator runs.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`

	// Validate references a custom field validator.
	Validate Ref `yaml:"validate,omitempty" json:"validate,omitempty"`
}

// Definition describes a form. Its Name is the namespace custom
// validators are looked up in.
type Definition struct {
	Name   string  `yaml:"name" json:"name"`
	Fields []Field `yaml:"fields" json:"fields"`

	// FormValidators names form-level validators run after field validation.
	FormValidators []string `yaml:"formValidators,omitempty" json:"formValidators,omitempty"`

	// Submit names the submission handler.
	Submit string `yaml:"submit,omitempty" json:"submit,omitempty"`
}

// Field returns the field named name.
func (d Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

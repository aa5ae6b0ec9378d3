package validation

import (
	"context"

	"github.com/vango-dev/formplug/pkg/form"
)

// Result holds the outcome of validating a form instance.
type Result struct {
	// Fields maps field names to their first error message.
	Fields map[string]string `json:"fields,omitempty"`

	// Form holds the messages of form-level validators.
	Form []string `json:"form,omitempty"`
}

// Valid reports whether no validator failed.
func (r Result) Valid() bool {
	return len(r.Fields) == 0 && len(r.Form) == 0
}

var required = form.Required("")

// Validate runs, per field, the required check, the field-type validator
// and the custom validator, stopping at the first failure. Form validators
// run afterwards in declaration order.
func (r *Resolver) Validate(ctx context.Context, def form.Definition, values form.Values, t form.Translator) Result {
	var res Result
	for _, f := range def.Fields {
		value := values.Get(f.Name)
		msg := ""
		if f.Required {
			if err := required(f.Name, value, t); err != nil {
				msg = err.Error()
			}
		}
		if msg == "" && f.Type != "" {
			msg = r.ValidateFieldType(f.Type, f.Name, value, t)
		}
		if msg == "" && len(f.Validate) > 0 {
			msg = r.ValidateField(def.Name, f.Name, f.Validate, value, t)
		}
		if msg != "" {
			if res.Fields == nil {
				res.Fields = make(map[string]string)
			}
			res.Fields[f.Name] = msg
		}
	}
	for _, name := range def.FormValidators {
		res.Form = append(res.Form, r.ValidateForm(ctx, name, values, t)...)
	}
	return res
}

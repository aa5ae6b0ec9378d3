// Package form defines the contracts between the plugin runtime and the
// things plugins contribute: widgets, field validators, form validators
// and submission handlers.
//
// # Validators
//
// A FieldValidator checks one value and returns nil or an error whose
// message is shown next to the field:
//
//	positive := form.FieldValidator(func(field string, value any, t form.Translator) error {
//	    if n, _ := value.(float64); n <= 0 {
//	        return form.Invalid(t.T("%s must be positive", field))
//	    }
//	    return nil
//	})
//
// A FormValidator sees every value of a submitted form. It is built
// either synchronously or asynchronously, and the choice is made once
// when the validator is constructed:
//
//	form.Sync(func(values form.Values, t form.Translator) []string { ... })
//	form.Async(func(ctx context.Context, values form.Values, t form.Translator) ([]string, error) { ... })
//
// # Rules
//
// The package also ships a small library of ready-made field rules
// (Required, MinLength, Email, Pattern, Min, Max, ...) and Compile, which
// builds a rule from its textual name, as used by declarative manifests:
//
//	v, err := form.Compile("minlength", "3")
package form

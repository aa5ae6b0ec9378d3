package validation

import "github.com/vango-dev/formplug/pkg/form"

// ParseRef converts a loosely typed reference into a form.Ref.
func ParseRef(v any) (form.Ref, bool) {
	switch r := v.(type) {
	case form.Ref:
		return r, len(r) > 0
	case string:
		if r == "" {
			return nil, false
		}
		return form.Ref{r}, true
	case []string:
		return form.Ref(r), len(r) > 0
	case []any:
		ref := make(form.Ref, 0, len(r))
		for _, part := range r {
			s, ok := part.(string)
			if !ok {
				return nil, false
			}
			ref = append(ref, s)
		}
		return ref, len(ref) > 0
	default:
		return nil, false
	}
}

// Resolve maps ref to the (category, name) it addresses within namespace.
// It reports false when the reference addresses nothing.
func Resolve(ref form.Ref, namespace string) (category, name string, ok bool) {
	switch {
	case len(ref) == 0 || ref[0] == "":
		return "", "", false
	case len(ref) == 1 || (len(ref) == 2 && ref[1] == ""):
		if namespace == "" {
			return "", "", false
		}
		return namespace, ref[0], true
	case len(ref) == 2:
		return ref[0], ref[1], true
	default:
		return "", "", false
	}
}

package form

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Invalid returns a ValidationError carrying msg.
func Invalid(msg string) error {
	return ValidationError{Message: msg}
}

// ----------------------------------------------------------------------------
// String Rules
// ----------------------------------------------------------------------------

// Required validates that the value is non-empty.
func Required(msg string) FieldValidator {
	if msg == "" {
		msg = "This field is required"
	}
	return func(field string, value any, t Translator) error {
		if isEmpty(value) {
			return ValidationError{Field: field, Message: t.T(msg)}
		}
		return nil
	}
}

// MinLength validates that a string has at least n characters.
func MinLength(n int, msg string) FieldValidator {
	return func(field string, value any, t Translator) error {
		s := toString(value)
		if s == "" {
			return nil // Let Required handle empty values
		}
		if len([]rune(s)) < n {
			return ValidationError{Field: field, Message: message(t, msg, "Must be at least %d characters", n)}
		}
		return nil
	}
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int, msg string) FieldValidator {
	return func(field string, value any, t Translator) error {
		if len([]rune(toString(value))) > n {
			return ValidationError{Field: field, Message: message(t, msg, "Must be at most %d characters", n)}
		}
		return nil
	}
}

// Pattern validates that a string matches the given regular expression.
func Pattern(pattern string, msg string) (FieldValidator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if msg == "" {
		msg = "Invalid format"
	}
	return matching(re, msg), nil
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	uuidPattern  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	// Matches common phone formats: +1-234-567-8900, (234) 567-8900, 234.567.8900.
	phonePattern = regexp.MustCompile(`^[\+]?[(]?[0-9]{1,4}[)]?[-\s\.]?[(]?[0-9]{1,3}[)]?[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,9}$`)
)

// Email validates that the value is a valid email address.
func Email(msg string) FieldValidator {
	if msg == "" {
		msg = "Invalid email address"
	}
	return matching(emailPattern, msg)
}

// UUID validates that the value is a valid UUID.
func UUID(msg string) FieldValidator {
	if msg == "" {
		msg = "Invalid UUID"
	}
	return matching(uuidPattern, msg)
}

// Phone validates that the value looks like a phone number.
func Phone(msg string) FieldValidator {
	if msg == "" {
		msg = "Invalid phone number"
	}
	return matching(phonePattern, msg)
}

// URL validates that the value is an absolute URL.
func URL(msg string) FieldValidator {
	if msg == "" {
		msg = "Invalid URL"
	}
	return func(field string, value any, t Translator) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ValidationError{Field: field, Message: t.T(msg)}
		}
		return nil
	}
}

// AlphaNumeric validates that the value contains only letters and digits.
func AlphaNumeric(msg string) FieldValidator {
	if msg == "" {
		msg = "Must contain only letters and numbers"
	}
	return runes(msg, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) })
}

// Numeric validates that the value contains only digits.
func Numeric(msg string) FieldValidator {
	if msg == "" {
		msg = "Must contain only numbers"
	}
	return runes(msg, unicode.IsDigit)
}

func matching(re *regexp.Regexp, msg string) FieldValidator {
	return func(field string, value any, t Translator) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if !re.MatchString(s) {
			return ValidationError{Field: field, Message: t.T(msg)}
		}
		return nil
	}
}

func runes(msg string, ok func(rune) bool) FieldValidator {
	return func(field string, value any, t Translator) error {
		for _, r := range toString(value) {
			if !ok(r) {
				return ValidationError{Field: field, Message: t.T(msg)}
			}
		}
		return nil
	}
}

// ----------------------------------------------------------------------------
// Numeric Rules
// ----------------------------------------------------------------------------

// Min validates that a numeric value is >= n.
func Min(n float64, msg string) FieldValidator {
	return numeric(msg, "Must be at least %v", n, func(v float64) bool { return v >= n })
}

// Max validates that a numeric value is <= n.
func Max(n float64, msg string) FieldValidator {
	return numeric(msg, "Must be at most %v", n, func(v float64) bool { return v <= n })
}

// Positive validates that a numeric value is > 0.
func Positive(msg string) FieldValidator {
	if msg == "" {
		msg = "Must be positive"
	}
	return func(field string, value any, t Translator) error {
		if isEmpty(value) {
			return nil
		}
		if v, ok := toFloat64(value); !ok || v <= 0 {
			return ValidationError{Field: field, Message: t.T(msg)}
		}
		return nil
	}
}

func numeric(msg, template string, bound float64, ok func(float64) bool) FieldValidator {
	return func(field string, value any, t Translator) error {
		if isEmpty(value) {
			return nil
		}
		if v, parsed := toFloat64(value); !parsed || !ok(v) {
			return ValidationError{Field: field, Message: message(t, msg, template, bound)}
		}
		return nil
	}
}

// message translates a caller-supplied msg verbatim, or the rule's default
// template with its bound filled in.
func message(t Translator, msg, template string, arg any) string {
	if msg != "" {
		return t.T(msg)
	}
	return t.T(template, arg)
}

// Chain runs validators in order and returns the first failure.
func Chain(validators ...FieldValidator) FieldValidator {
	return func(field string, value any, t Translator) error {
		for _, v := range validators {
			if v == nil {
				continue
			}
			if err := v(field, value, t); err != nil {
				return err
			}
		}
		return nil
	}
}

// Compile builds a rule from its textual name and argument, as written in
// plugin manifests ("minlength", "3"). msg overrides the default message.
func Compile(name, arg, msg string) (FieldValidator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "required":
		return Required(msg), nil
	case "minlen", "minlength":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		return MinLength(n, msg), nil
	case "maxlen", "maxlength":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		return MaxLength(n, msg), nil
	case "min", "max":
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		if strings.EqualFold(name, "min") {
			return Min(n, msg), nil
		}
		return Max(n, msg), nil
	case "email":
		return Email(msg), nil
	case "url":
		return URL(msg), nil
	case "uuid":
		return UUID(msg), nil
	case "phone":
		return Phone(msg), nil
	case "numeric":
		return Numeric(msg), nil
	case "alphanum", "alphanumeric":
		return AlphaNumeric(msg), nil
	case "positive":
		return Positive(msg), nil
	case "pattern", "regex":
		v, err := Pattern(arg, msg)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown rule %q", name)
	}
}

// ----------------------------------------------------------------------------
// Helper Functions
// ----------------------------------------------------------------------------

// isEmpty checks if a value is considered empty.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(v) == 0
	default:
		return false // 0 and false are values, not absence
	}
}

// toString converts a value to a string.
func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toFloat64 converts a value to float64.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

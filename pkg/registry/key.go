package registry

import "fmt"

// Kind partitions registrable items.
type Kind string

const (
	KindComponent            Kind = "component"
	KindFieldCustomValidator Kind = "fieldCustomValidator"
	KindFieldTypeValidator   Kind = "fieldTypeValidator"
	KindFormValidator        Kind = "formValidator"
	KindSubmissionHandler    Kind = "submissionHandler"
)

// Kinds returns every resource kind in registration order.
func Kinds() []Kind {
	return []Kind{
		KindComponent,
		KindFieldCustomValidator,
		KindFieldTypeValidator,
		KindFormValidator,
		KindSubmissionHandler,
	}
}

// Categorized reports whether keys of this kind carry a category.
func (k Kind) Categorized() bool {
	return k == KindFieldCustomValidator
}

// Valid reports whether k is a known resource kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Key is the address a value is stored under.
type Key struct {
	Kind     Kind
	Category string
	Name     string
}

// NewKey returns the key for an uncategorized kind.
func NewKey(kind Kind, name string) Key {
	return Key{Kind: kind, Name: name}
}

// CategoryKey returns the key for a categorized kind.
func CategoryKey(kind Kind, category, name string) Key {
	return Key{Kind: kind, Category: category, Name: name}
}

// IsZero reports whether the key is incomplete.
func (k Key) IsZero() bool {
	return k.Kind == "" || k.Name == "" || (k.Kind.Categorized() && k.Category == "")
}

// QualifiedName returns the name within its kind ("category:name" for
// categorized kinds).
func (k Key) QualifiedName() string {
	if k.Category != "" {
		return k.Category + ":" + k.Name
	}
	return k.Name
}

// String returns "kind/qualified-name".
func (k Key) String() string {
	if k.Kind == "" {
		return fmt.Sprintf("<unknown>/%s", k.QualifiedName())
	}
	return string(k.Kind) + "/" + k.QualifiedName()
}

// Package i18n provides the default form.Translator, backed by
// golang.org/x/text message catalogs.
package i18n

import (
	"fmt"
	"io"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/formplug/pkg/form"
)

// Catalog holds translated messages keyed by their source text.
type Catalog struct {
	builder  *catalog.Builder
	fallback language.Tag
}

// New creates a catalog falling back to fallback and seeded with the
// built-in rule messages.
func New(fallback language.Tag) *Catalog {
	c := &Catalog{
		builder:  catalog.NewBuilder(catalog.Fallback(fallback)),
		fallback: fallback,
	}
	// Keys and tags are constants; SetString only fails on malformed input.
	for tag, messages := range defaults {
		for key, msg := range messages {
			_ = c.builder.SetString(tag, key, msg)
			if tag != fallback {
				// Makes the fallback a matchable language.
				_ = c.builder.SetString(fallback, key, key)
			}
		}
	}
	return c
}

// Set adds or replaces one translation.
func (c *Catalog) Set(tag language.Tag, key, msg string) error {
	return c.builder.SetString(tag, key, msg)
}

// Load reads translations from YAML of the form
//
//	de:
//	  "This field is required": "Dieses Feld ist erforderlich"
func (c *Catalog) Load(r io.Reader) error {
	var doc map[string]map[string]string
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("i18n: decode translations: %w", err)
	}
	for lang, messages := range doc {
		tag, err := language.Parse(lang)
		if err != nil {
			return fmt.Errorf("i18n: language %q: %w", lang, err)
		}
		for key, msg := range messages {
			if err := c.Set(tag, key, msg); err != nil {
				return fmt.Errorf("i18n: %s %q: %w", lang, key, err)
			}
		}
	}
	return nil
}

// Languages returns the languages with at least one translation.
func (c *Catalog) Languages() []string {
	tags := c.builder.Languages()
	langs := make([]string, len(tags))
	for i, t := range tags {
		langs[i] = t.String()
	}
	sort.Strings(langs)
	return langs
}

// Match returns the best supported language for an Accept-Language style
// preference list, or the fallback.
func (c *Catalog) Match(preferences ...string) language.Tag {
	supported := c.builder.Languages()
	if len(supported) == 0 {
		return c.fallback
	}
	var desired []language.Tag
	for _, p := range preferences {
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		desired = append(desired, tags...)
	}
	if len(desired) == 0 {
		return c.fallback
	}
	_, idx, conf := language.NewMatcher(supported).Match(desired...)
	if conf == language.No {
		return c.fallback
	}
	return supported[idx]
}

// Translator returns a form.Translator for the best match of preferences.
// Keys without a translation are formatted as-is.
func (c *Catalog) Translator(preferences ...string) form.Translator {
	p := message.NewPrinter(c.Match(preferences...), message.Catalog(c.builder))
	return func(key string, args ...any) string {
		return p.Sprintf(key, args...)
	}
}

var defaults = map[language.Tag]map[string]string{
	language.German: {
		"This field is required":                "Dieses Feld ist erforderlich",
		"Must be at least %d characters":        "Mindestens %d Zeichen erforderlich",
		"Must be at most %d characters":         "Höchstens %d Zeichen erlaubt",
		"Invalid email address":                 "Ungültige E-Mail-Adresse",
		"Invalid phone number":                  "Ungültige Telefonnummer",
		"Invalid URL":                           "Ungültige URL",
		"Must be at least %v":                   "Muss mindestens %v sein",
		"Must be at most %v":                    "Darf höchstens %v sein",
		"Must be positive":                      "Muss positiv sein",
		"Must contain only numbers":             "Darf nur Ziffern enthalten",
		"Invalid UUID":                          "Ungültige UUID",
		"Invalid format":                        "Ungültiges Format",
		"Must contain only letters and numbers": "Darf nur Buchstaben und Ziffern enthalten",
	},
}

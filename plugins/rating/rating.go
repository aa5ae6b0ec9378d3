// Package rating is a sample plugin adding a star-rating widget and the
// numeric field types it relies on.
package rating

import (
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/plugin"
)

// Name is the plugin name.
const Name = "rating"

// Widget is the handle registered for the "rating" component.
type Widget struct {
	Max int
}

// Option configures the plugin.
type Option func(*config)

type config struct {
	name string
	max  int
}

// WithMax sets the number of stars (default 5).
func WithMax(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.max = n
		}
	}
}

// WithName installs the plugin under another name.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// New returns the rating plugin.
func New(opts ...Option) *plugin.Plugin {
	c := config{name: Name, max: 5}
	for _, opt := range opts {
		opt(&c)
	}
	return &plugin.Plugin{
		Name:        c.name,
		Version:     "1.0.0",
		Description: "Star rating widget",
		Components: map[string]form.Component{
			"rating": Widget{Max: c.max},
		},
		FieldTypeValidators: map[string]form.FieldValidator{
			"positiveNumber": form.Positive(""),
			"rating":         form.Chain(form.Min(1, ""), form.Max(float64(c.max), "")),
		},
	}
}

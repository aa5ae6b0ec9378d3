// Package manifest compiles declarative YAML plugin manifests into
// plugins.
//
//	name: survey
//	version: 1.0.0
//	components:
//	  - name: likert
//	    widget: slider
//	    props: {steps: 5}
//	fieldTypeValidators:
//	  - name: zip
//	    rules:
//	      - {rule: pattern, arg: '^\d{5}$', message: Invalid ZIP code}
//	fieldCustomValidators:
//	  survey:
//	    - name: age
//	      rules: [{rule: min, arg: "18"}]
//	formValidators:
//	  - name: channel
//	    requireOneOf: [email, phone]
//	    message: Provide an email address or a phone number
//	submissionHandlers:
//	  - name: survey.log
//	    action: log
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/plugin"
	"github.com/vango-dev/formplug/pkg/registry"
)

// Manifest is the YAML form of a plugin.
type Manifest struct {
	Name                  string                     `yaml:"name"`
	Version               string                     `yaml:"version"`
	Description           string                     `yaml:"description,omitempty"`
	Components            []Component                `yaml:"components,omitempty"`
	FieldTypeValidators   []Validator                `yaml:"fieldTypeValidators,omitempty"`
	FieldCustomValidators map[string][]Validator     `yaml:"fieldCustomValidators,omitempty"`
	FormValidators        []FormValidator            `yaml:"formValidators,omitempty"`
	SubmissionHandlers    []SubmissionHandler        `yaml:"submissionHandlers,omitempty"`
	Forms                 map[string]form.Definition `yaml:"forms,omitempty"`
}

// Component declares a widget. The compiled handle is a Widget.
type Component struct {
	Name   string         `yaml:"name"`
	Widget string         `yaml:"widget"`
	Props  map[string]any `yaml:"props,omitempty"`
}

// Widget is the component handle produced from a manifest.
type Widget struct {
	Plugin string
	Type   string
	Props  map[string]any
}

// Rule is one step of a field validator.
type Rule struct {
	Rule    string `yaml:"rule"`
	Arg     string `yaml:"arg,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Validator declares a field validator as a chain of rules.
type Validator struct {
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"rules"`
}

// FormValidator declares a form-level validator.
type FormValidator struct {
	Name string `yaml:"name"`

	// RequireOneOf fails unless at least one of the fields is non-empty.
	RequireOneOf []string `yaml:"requireOneOf,omitempty"`

	// Equal fails unless all the fields hold the same value.
	Equal []string `yaml:"equal,omitempty"`

	Message string `yaml:"message,omitempty"`
}

// SubmissionHandler declares a handler. The only action is "log".
type SubmissionHandler struct {
	Name   string `yaml:"name"`
	Action string `yaml:"action"`
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.New(errors.CodeManifestInvalid).Wrap(err)
	}
	return &m, nil
}

// ParseFile decodes the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeManifestInvalid).WithDetailf("read %s", path).Wrap(err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New(errors.CodeManifestInvalid).WithDetailf("parse %s", path).Wrap(err)
	}
	return m, nil
}

// Compile builds the plugin described by m. Submission handlers log
// through logger.
func (m *Manifest) Compile(logger *slog.Logger) (*plugin.Plugin, error) {
	if strings.TrimSpace(m.Name) == "" {
		return nil, invalid("manifest has no name")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &plugin.Plugin{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
	}

	if len(m.Components) > 0 {
		p.Components = make(map[string]form.Component, len(m.Components))
		for _, c := range m.Components {
			if c.Name == "" {
				return nil, invalid("component without a name")
			}
			widget := c.Widget
			if widget == "" {
				widget = c.Name
			}
			p.Components[c.Name] = Widget{Plugin: m.Name, Type: widget, Props: c.Props}
		}
	}

	if len(m.FieldTypeValidators) > 0 {
		p.FieldTypeValidators = make(map[string]form.FieldValidator, len(m.FieldTypeValidators))
		for _, v := range m.FieldTypeValidators {
			fn, err := v.compile()
			if err != nil {
				return nil, err
			}
			p.FieldTypeValidators[v.Name] = fn
		}
	}

	if len(m.FieldCustomValidators) > 0 {
		p.FieldCustomValidators = make(map[string]map[string]form.FieldValidator, len(m.FieldCustomValidators))
		for category, validators := range m.FieldCustomValidators {
			if category == "" {
				return nil, invalid("custom validators need a category")
			}
			byName := make(map[string]form.FieldValidator, len(validators))
			for _, v := range validators {
				fn, err := v.compile()
				if err != nil {
					return nil, err
				}
				byName[v.Name] = fn
			}
			p.FieldCustomValidators[category] = byName
		}
	}

	if len(m.FormValidators) > 0 {
		p.FormValidators = make(map[string]form.FormValidator, len(m.FormValidators))
		for _, v := range m.FormValidators {
			fv, err := v.compile()
			if err != nil {
				return nil, err
			}
			p.FormValidators[v.Name] = fv
		}
	}

	if len(m.SubmissionHandlers) > 0 {
		p.SubmissionHandlers = make(map[string]form.SubmissionHandler, len(m.SubmissionHandlers))
		for _, h := range m.SubmissionHandlers {
			if h.Name == "" {
				return nil, invalid("submission handler without a name")
			}
			switch h.Action {
			case "", "log":
				p.SubmissionHandlers[h.Name] = logHandler(logger.With("plugin", m.Name, "handler", h.Name))
			default:
				return nil, invalid(fmt.Sprintf("submission handler %q: unknown action %q", h.Name, h.Action))
			}
		}
	}

	return p, nil
}

// Definitions returns the manifest's forms sorted by name, each named
// after its key.
func (m *Manifest) Definitions() []form.Definition {
	defs := make([]form.Definition, 0, len(m.Forms))
	for _, name := range registry.SortedNames(m.Forms) {
		def := m.Forms[name]
		def.Name = name
		defs = append(defs, def)
	}
	return defs
}

// Bundle is a compiled manifest.
type Bundle struct {
	Plugin *plugin.Plugin
	Forms  []form.Definition
}

// Load parses and compiles the manifest at path.
func Load(path string, logger *slog.Logger) (*Bundle, error) {
	m, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	p, err := m.Compile(logger)
	if err != nil {
		return nil, errors.New(errors.CodeManifestInvalid).WithDetailf("%s: %s", path, detailOf(err))
	}
	return &Bundle{Plugin: p, Forms: m.Definitions()}, nil
}

func detailOf(err error) string {
	var fe *errors.Error
	if errors.As(err, &fe) && fe.Detail != "" {
		return fe.Detail
	}
	return err.Error()
}

func (v Validator) compile() (form.FieldValidator, error) {
	if v.Name == "" {
		return nil, invalid("validator without a name")
	}
	if len(v.Rules) == 0 {
		return nil, invalid(fmt.Sprintf("validator %q has no rules", v.Name))
	}
	chain := make([]form.FieldValidator, 0, len(v.Rules))
	for _, r := range v.Rules {
		fn, err := form.Compile(r.Rule, r.Arg, r.Message)
		if err != nil {
			return nil, invalid(fmt.Sprintf("validator %q: %v", v.Name, err))
		}
		chain = append(chain, fn)
	}
	return form.Chain(chain...), nil
}

func (v FormValidator) compile() (form.FormValidator, error) {
	if v.Name == "" {
		return form.FormValidator{}, invalid("form validator without a name")
	}
	switch {
	case len(v.RequireOneOf) > 0 && len(v.Equal) == 0:
		msg := v.Message
		if msg == "" {
			msg = "Fill in at least one of: %s"
		}
		fields := v.RequireOneOf
		return form.Sync(func(values form.Values, t form.Translator) []string {
			for _, f := range fields {
				if v := values.Get(f); v != nil && strings.TrimSpace(fmt.Sprint(v)) != "" {
					return nil
				}
			}
			return []string{translate(t, msg, strings.Join(fields, ", "))}
		}), nil
	case len(v.Equal) > 1 && len(v.RequireOneOf) == 0:
		msg := v.Message
		if msg == "" {
			msg = "Fields must match: %s"
		}
		fields := v.Equal
		return form.Sync(func(values form.Values, t form.Translator) []string {
			first := values.Get(fields[0])
			for _, f := range fields[1:] {
				if values.Get(f) != first {
					return []string{translate(t, msg, strings.Join(fields, ", "))}
				}
			}
			return nil
		}), nil
	default:
		return form.FormValidator{}, invalid(fmt.Sprintf("form validator %q needs exactly one of requireOneOf or equal (two or more fields)", v.Name))
	}
}

func logHandler(logger *slog.Logger) form.SubmissionHandler {
	return func(ctx context.Context, def form.Definition, instance string, values form.Values) error {
		attrs := make([]any, 0, 2+2*len(values))
		attrs = append(attrs, "form", def.Name, "instance", instance)
		for _, f := range def.Fields {
			attrs = append(attrs, f.Name, values.Get(f.Name))
		}
		logger.InfoContext(ctx, "Form submitted.", attrs...)
		return nil
	}
}

func translate(t form.Translator, msg string, arg any) string {
	if strings.Contains(msg, "%") {
		return t.T(msg, arg)
	}
	return t.T(msg)
}

func invalid(detail string) error {
	return errors.New(errors.CodeManifestInvalid).WithDetail(detail)
}

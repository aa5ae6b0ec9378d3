package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/text/language"

	"github.com/vango-dev/formplug"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/i18n"
	"github.com/vango-dev/formplug/pkg/manifest"
	"github.com/vango-dev/formplug/pkg/metrics"
	"github.com/vango-dev/formplug/plugins/contact"
	"github.com/vango-dev/formplug/plugins/rating"
)

// env is a runtime with its plugins installed.
type env struct {
	rt       *formplug.Runtime
	forms    []form.Definition
	catalog  *i18n.Catalog
	metrics  *metrics.Collector
	registry *prometheus.Registry
	inbox    *contact.Inbox
}

func (a *app) newEnv(ctx context.Context) (*env, error) {
	fallback, err := language.Parse(a.cfg.Locale)
	if err != nil {
		fallback = language.English
	}
	e := &env{
		catalog:  i18n.New(fallback),
		registry: prometheus.NewRegistry(),
		inbox:    &contact.Inbox{},
	}

	opts := []formplug.Option{
		formplug.WithLogger(a.logger),
		formplug.WithDefaultStrategy(a.cfg.ResolutionStrategy()),
		formplug.WithTranslator(e.catalog.Translator(a.cfg.Locale)),
	}
	if a.cfg.Metrics.Enabled {
		e.registry.MustRegister(collectors.NewGoCollector())
		e.metrics = metrics.New(metrics.WithRegistry(e.registry), metrics.WithNamespace(a.cfg.Metrics.Namespace))
		opts = append(opts, formplug.WithMetrics(e.metrics))
	}
	e.rt = formplug.New(opts...)

	if a.samples {
		if err := e.rt.RegisterPlugin(ctx, rating.New()); err != nil {
			return nil, err
		}
		if err := e.rt.RegisterPlugin(ctx, contact.New(e.inbox, a.logger)); err != nil {
			return nil, err
		}
		e.forms = append(e.forms, contact.Definition())
	}

	paths := append(a.cfg.ManifestPaths(), a.manifests...)
	for _, path := range paths {
		b, err := manifest.Load(path, a.logger)
		if err != nil {
			return nil, err
		}
		if err := e.rt.RegisterPlugin(ctx, b.Plugin); err != nil {
			return nil, err
		}
		e.forms = append(e.forms, b.Forms...)
	}
	return e, nil
}

func (e *env) form(name string) (form.Definition, bool) {
	for _, def := range e.forms {
		if def.Name == name {
			return def, true
		}
	}
	return form.Definition{}, false
}

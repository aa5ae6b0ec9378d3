package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/formplug"
	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/i18n"
	"github.com/vango-dev/formplug/pkg/metrics"
	"github.com/vango-dev/formplug/pkg/registry"
	"github.com/vango-dev/formplug/pkg/validation"
)

// Server serves a Runtime's forms.
type Server struct {
	rt       *formplug.Runtime
	logger   *slog.Logger
	catalog  *i18n.Catalog
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	timeout  time.Duration
	tracing  []TraceOption

	mu    sync.RWMutex
	forms map[string]form.Definition
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: the runtime's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCatalog sets the translation catalog.
func WithCatalog(c *i18n.Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithMetrics records request metrics in c and serves gatherer at /metrics.
func WithMetrics(c *metrics.Collector, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = c
		s.gatherer = gatherer
	}
}

// WithValidationTimeout bounds each validate or submit call, including
// async form validators. Zero means no bound.
func WithValidationTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithTracing configures the request tracing middleware.
func WithTracing(opts ...TraceOption) Option {
	return func(s *Server) {
		s.tracing = append(s.tracing, opts...)
	}
}

// WithForms registers form definitions.
func WithForms(defs ...form.Definition) Option {
	return func(s *Server) {
		for _, def := range defs {
			s.forms[def.Name] = def
		}
	}
}

// New creates a server for rt.
func New(rt *formplug.Runtime, opts ...Option) *Server {
	s := &Server{
		rt:     rt,
		logger: rt.Logger(),
		forms:  make(map[string]form.Definition),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddForm registers or replaces a form definition.
func (s *Server) AddForm(def form.Definition) {
	s.mu.Lock()
	s.forms[def.Name] = def
	s.mu.Unlock()
}

func (s *Server) form(name string) (form.Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.forms[name]
	return def, ok
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Tracing(s.tracing...))
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/plugins", s.listPlugins)
	r.Get("/ownership", s.listOwnership)
	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.listForms)
		r.Route("/{definition}", func(r chi.Router) {
			r.Get("/", s.getForm)
			r.Post("/validate", s.validate)
			r.Post("/submit", s.submit)
		})
	})
	return r
}

// ListenAndServe serves the handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening.", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// =============================================================================
// Handlers
// =============================================================================

type pluginJSON struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	InstallID   string   `json:"installId"`
	InstalledAt string   `json:"installedAt"`
	Applied     []string `json:"applied"`
}

func (s *Server) listPlugins(w http.ResponseWriter, _ *http.Request) {
	out := []pluginJSON{}
	for _, p := range s.rt.AllPlugins() {
		rec, ok := s.rt.PluginRecord(p.Name)
		if !ok {
			continue
		}
		out = append(out, pluginJSON{
			Name:        p.Name,
			Version:     p.Version,
			Description: p.Description,
			InstallID:   rec.InstallID.String(),
			InstalledAt: rec.InstalledAt.UTC().Format(time.RFC3339),
			Applied:     keyStrings(rec.Applied),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func keyStrings(keys []registry.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func (s *Server) listOwnership(w http.ResponseWriter, _ *http.Request) {
	out := map[string]string{}
	for _, e := range s.rt.Ownership() {
		out[e.Key.String()] = e.Owner
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listForms(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	names := registry.SortedNames(s.forms)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	def, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, def)
}

type submission struct {
	Instance string      `json:"instance,omitempty"`
	Values   form.Values `json:"values"`
}

type resultJSON struct {
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields,omitempty"`
	Form   []string          `json:"form,omitempty"`
}

func toResultJSON(res validation.Result) resultJSON {
	return resultJSON{Valid: res.Valid(), Fields: res.Fields, Form: res.Form}
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	def, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	body, ok := decode(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.bound(r.Context())
	defer cancel()

	res := s.rt.Validate(ctx, def, body.Values, s.translator(r))
	status := http.StatusOK
	if !res.Valid() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toResultJSON(res))
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	def, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	body, ok := decode(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.bound(r.Context())
	defer cancel()

	res, err := s.rt.Submit(ctx, def, body.Instance, body.Values, s.translator(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, toResultJSON(res))
	case errors.CodeOf(err) == errors.CodeSubmitInvalid:
		writeJSON(w, http.StatusUnprocessableEntity, toResultJSON(res))
	case errors.CodeOf(err) == errors.CodeHandlerNotFound:
		writeError(w, http.StatusNotImplemented, err)
	default:
		s.logger.Error("Submission failed.", "form", def.Name, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) lookupForm(w http.ResponseWriter, r *http.Request) (form.Definition, bool) {
	name := chi.URLParam(r, "definition")
	def, ok := s.form(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorJSON{Message: "unknown form", Detail: name})
	}
	return def, ok
}

func decode(w http.ResponseWriter, r *http.Request) (submission, bool) {
	var body submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Message: "invalid request body", Detail: err.Error()})
		return submission{}, false
	}
	for k, v := range body.Values {
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				body.Values[k] = f
			} else {
				body.Values[k] = n.String()
			}
		}
	}
	return body, true
}

func (s *Server) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Server) translator(r *http.Request) form.Translator {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Translator(r.Header.Get("Accept-Language"))
}

type errorJSON struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	var fe *errors.Error
	if errors.As(err, &fe) {
		writeJSON(w, status, errorJSON{Code: fe.Code, Message: fe.Message, Detail: fe.Detail})
		return
	}
	writeJSON(w, status, errorJSON{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

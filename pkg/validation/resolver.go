package validation

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/formplug/internal/cache"
	"github.com/vango-dev/formplug/pkg/form"
)

// Lookup is the registry the resolver reads validators from.
type Lookup interface {
	FieldCustomValidator(category, name string) (form.FieldValidator, bool)
	FieldTypeValidator(name string) (form.FieldValidator, bool)
	FormValidator(name string) (form.FormValidator, bool)
}

// Observer receives resolver events.
type Observer interface {
	LookupCached(hit bool)
	HandlerFailed(kind string)
}

type nopObserver struct{}

func (nopObserver) LookupCached(bool)    {}
func (nopObserver) HandlerFailed(string) {}

// entry is a cached lookup. found is false for a cached miss.
type entry struct {
	fn    form.FieldValidator
	found bool
}

// Resolver resolves and invokes validators.
type Resolver struct {
	lookup   Lookup
	cache    *cache.Cache[entry]
	logger   *slog.Logger
	tracer   trace.Tracer
	observer Observer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithTracerName sets the OpenTelemetry tracer name.
func WithTracerName(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.tracer = otel.Tracer(name)
		}
	}
}

// NewResolver creates a resolver reading from lookup.
func NewResolver(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:   lookup,
		logger:   slog.Default(),
		tracer:   otel.Tracer("formplug"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = cache.New[entry]("field-validators", cache.NoExpiration, r.logger)
	return r
}

// cacheKey length-prefixes category so that no two (category, name) pairs
// share a key, whatever characters they contain.
func cacheKey(category, name string) string {
	return strconv.Itoa(len(category)) + ":" + category + name
}

// FieldValidator returns the custom validator registered under
// (category, name), consulting the lookup at most once per pair until the
// entry is invalidated.
func (r *Resolver) FieldValidator(category, name string) (form.FieldValidator, bool) {
	key := cacheKey(category, name)
	if e, ok := r.cache.Get(key); ok {
		r.observer.LookupCached(true)
		return e.fn, e.found
	}
	r.observer.LookupCached(false)
	fn, found := r.lookup.FieldCustomValidator(category, name)
	r.cache.Set(key, entry{fn: fn, found: found && fn != nil})
	return fn, found && fn != nil
}

// Invalidate drops the cached lookup for (category, name).
func (r *Resolver) Invalidate(category, name string) {
	r.cache.Delete(cacheKey(category, name))
}

// ClearCache drops every cached lookup.
func (r *Resolver) ClearCache() {
	r.cache.Flush()
}

// CacheLen returns the number of cached lookups, misses included.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}

// ValidateField resolves ref within namespace and runs the validator on
// value. It returns the error message, or "" when the value is valid or no
// validator is addressed.
func (r *Resolver) ValidateField(namespace, field string, ref form.Ref, value any, t form.Translator) string {
	category, name, ok := Resolve(ref, namespace)
	if !ok {
		return ""
	}
	fn, found := r.FieldValidator(category, name)
	if !found {
		r.logger.Debug("No field validator registered.", "category", category, "name", name)
		return ""
	}
	return r.invokeField("fieldCustomValidator", fn, field, value, t)
}

// ValidateFieldType runs the validator registered for fieldType.
func (r *Resolver) ValidateFieldType(fieldType, field string, value any, t form.Translator) string {
	fn, ok := r.lookup.FieldTypeValidator(fieldType)
	if !ok || fn == nil {
		return ""
	}
	return r.invokeField("fieldTypeValidator", fn, field, value, t)
}

func (r *Resolver) invokeField(kind string, fn form.FieldValidator, field string, value any, t form.Translator) (msg string) {
	defer func() {
		if p := recover(); p != nil {
			msg = panicMessage(p)
			r.handlerFailed(kind, field, msg)
		}
	}()
	if err := fn(field, value, t); err != nil {
		var verr form.ValidationError
		if !stderrors.As(err, &verr) {
			r.handlerFailed(kind, field, err.Error())
		}
		return err.Error()
	}
	return ""
}

func (r *Resolver) handlerFailed(kind, field, msg string) {
	r.observer.HandlerFailed(kind)
	r.logger.Debug("Validator failed.", "kind", kind, "field", field, "error", msg)
}

// ValidateForm runs the named form validator. It returns nil when the
// values are valid or no validator is registered under name. Async
// validators are awaited until they finish or ctx is done.
func (r *Resolver) ValidateForm(ctx context.Context, name string, values form.Values, t form.Translator) []string {
	v, ok := r.lookup.FormValidator(name)
	if !ok || v.IsZero() {
		return nil
	}
	if fn, ok := v.SyncFunc(); ok {
		return normalize(r.runSync(name, fn, values, t))
	}
	fn, _ := v.AsyncFunc()

	ctx, span := r.tracer.Start(ctx, "formplug.ValidateForm",
		trace.WithAttributes(attribute.String("formplug.form_validator", name)),
	)
	defer span.End()

	type result struct {
		msgs []string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: stderrors.New(panicMessage(p))}
			}
		}()
		msgs, err := fn(ctx, values, t)
		done <- result{msgs: msgs, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			span.RecordError(res.err)
			r.handlerFailed("formValidator", name, res.err.Error())
			return []string{res.err.Error()}
		}
		return normalize(res.msgs)
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		r.handlerFailed("formValidator", name, ctx.Err().Error())
		return []string{ctx.Err().Error()}
	}
}

func (r *Resolver) runSync(name string, fn form.SyncFormFunc, values form.Values, t form.Translator) (msgs []string) {
	defer func() {
		if p := recover(); p != nil {
			msg := panicMessage(p)
			r.handlerFailed("formValidator", name, msg)
			msgs = []string{msg}
		}
	}()
	return fn(values, t)
}

func normalize(msgs []string) []string {
	if len(msgs) == 0 {
		return nil
	}
	return msgs
}

func panicMessage(p any) string {
	if err, ok := p.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(p)
}

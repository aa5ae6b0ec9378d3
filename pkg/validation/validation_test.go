package validation

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/formplug/pkg/form"
)

// spyLookup counts calls to FieldCustomValidator.
type spyLookup struct {
	custom map[string]form.FieldValidator
	types  map[string]form.FieldValidator
	forms  map[string]form.FormValidator
	calls  map[string]int
}

func newSpy() *spyLookup {
	return &spyLookup{
		custom: map[string]form.FieldValidator{},
		types:  map[string]form.FieldValidator{},
		forms:  map[string]form.FormValidator{},
		calls:  map[string]int{},
	}
}

func (s *spyLookup) FieldCustomValidator(category, name string) (form.FieldValidator, bool) {
	s.calls[category+":"+name]++
	fn, ok := s.custom[category+":"+name]
	return fn, ok
}

func (s *spyLookup) FieldTypeValidator(name string) (form.FieldValidator, bool) {
	fn, ok := s.types[name]
	return fn, ok
}

func (s *spyLookup) FormValidator(name string) (form.FormValidator, bool) {
	v, ok := s.forms[name]
	return v, ok
}

func newTestResolver(lookup Lookup) *Resolver {
	return NewResolver(lookup, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		ref          form.Ref
		wantCategory string
		wantName     string
		wantOK       bool
	}{
		{"plain name", form.Ref{"ageCheck"}, "signup", "ageCheck", true},
		{"two parts", form.Ref{"shared", "ageCheck"}, "shared", "ageCheck", true},
		{"second part empty", form.Ref{"ageCheck", ""}, "signup", "ageCheck", true},
		{"empty", nil, "", "", false},
		{"first part empty", form.Ref{"", "ageCheck"}, "", "", false},
		{"too many parts", form.Ref{"a", "b", "c"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, name, ok := Resolve(tt.ref, "signup")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   form.Ref
		wantOK bool
	}{
		{"string", "ageCheck", form.Ref{"ageCheck"}, true},
		{"strings", []string{"shared", "ageCheck"}, form.Ref{"shared", "ageCheck"}, true},
		{"any slice", []any{"shared", "ageCheck"}, form.Ref{"shared", "ageCheck"}, true},
		{"ref", form.Ref{"x"}, form.Ref{"x"}, true},
		{"empty string", "", nil, false},
		{"mixed slice", []any{"shared", 3}, nil, false},
		{"number", 42, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRef(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolver_CachesLookups(t *testing.T) {
	spy := newSpy()
	spy.custom["signup:ageCheck"] = func(string, any, form.Translator) error { return nil }
	r := newTestResolver(spy)

	for i := 0; i < 3; i++ {
		_, ok := r.FieldValidator("signup", "ageCheck")
		assert.True(t, ok)
		_, ok = r.FieldValidator("signup", "missing")
		assert.False(t, ok)
	}
	assert.Equal(t, 1, spy.calls["signup:ageCheck"])
	assert.Equal(t, 1, spy.calls["signup:missing"], "misses are cached too")
	assert.Equal(t, 2, r.CacheLen())

	spy.custom["signup:missing"] = func(string, any, form.Translator) error { return nil }
	_, ok := r.FieldValidator("signup", "missing")
	assert.False(t, ok, "a cached miss stays until invalidated")

	r.Invalidate("signup", "missing")
	_, ok = r.FieldValidator("signup", "missing")
	assert.True(t, ok)
	assert.Equal(t, 2, spy.calls["signup:missing"])

	r.ClearCache()
	assert.Zero(t, r.CacheLen())
	r.FieldValidator("signup", "ageCheck")
	assert.Equal(t, 2, spy.calls["signup:ageCheck"])
}

func TestResolver_ValidateField(t *testing.T) {
	spy := newSpy()
	spy.custom["signup:ageCheck"] = func(field string, value any, tr form.Translator) error {
		if n, _ := value.(int); n < 18 {
			return form.ValidationError{Field: field, Message: tr.T("too young")}
		}
		return nil
	}
	spy.custom["signup:panics"] = func(string, any, form.Translator) error { panic("kaboom") }
	spy.custom["signup:panicsErr"] = func(string, any, form.Translator) error { panic(stderrors.New("bad state")) }
	spy.custom["shared:fails"] = func(string, any, form.Translator) error { return stderrors.New("backend down") }
	r := newTestResolver(spy)

	tests := []struct {
		name  string
		ref   form.Ref
		value any
		want  string
	}{
		{"valid", form.Ref{"ageCheck"}, 30, ""},
		{"invalid", form.Ref{"ageCheck"}, 12, "too young"},
		{"panic value", form.Ref{"panics"}, 1, "kaboom"},
		{"panic error", form.Ref{"panicsErr"}, 1, "bad state"},
		{"plain error", form.Ref{"shared", "fails"}, 1, "backend down"},
		{"unknown", form.Ref{"nope"}, 1, ""},
		{"unresolvable", form.Ref{}, 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ValidateField("signup", "age", tt.ref, tt.value, nil))
		})
	}
}

func TestResolver_ValidateFieldType(t *testing.T) {
	spy := newSpy()
	spy.types["positiveNumber"] = form.Positive("must be positive")
	r := newTestResolver(spy)

	assert.Equal(t, "must be positive", r.ValidateFieldType("positiveNumber", "qty", -1, nil))
	assert.Empty(t, r.ValidateFieldType("positiveNumber", "qty", 3, nil))
	assert.Empty(t, r.ValidateFieldType("unknown", "qty", -1, nil))
}

func TestResolver_ValidateForm(t *testing.T) {
	spy := newSpy()
	spy.forms["match"] = form.Sync(func(v form.Values, _ form.Translator) []string {
		if v.Get("password") != v.Get("confirm") {
			return []string{"passwords differ"}
		}
		return []string{}
	})
	spy.forms["remote"] = form.Async(func(_ context.Context, v form.Values, _ form.Translator) ([]string, error) {
		if v.Get("email") == "taken@example.com" {
			return []string{"email taken"}, nil
		}
		return nil, nil
	})
	spy.forms["remoteErr"] = form.Async(func(context.Context, form.Values, form.Translator) ([]string, error) {
		return nil, stderrors.New("service unavailable")
	})
	spy.forms["slow"] = form.Async(func(ctx context.Context, _ form.Values, _ form.Translator) ([]string, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return []string{"late"}, nil
	})
	spy.forms["panics"] = form.Sync(func(form.Values, form.Translator) []string { panic("sync boom") })
	spy.forms["asyncPanics"] = form.Async(func(context.Context, form.Values, form.Translator) ([]string, error) {
		panic("async boom")
	})
	r := newTestResolver(spy)
	ctx := context.Background()

	assert.Nil(t, r.ValidateForm(ctx, "match", form.Values{"password": "a", "confirm": "a"}, nil), "empty result normalizes to nil")
	assert.Equal(t, []string{"passwords differ"}, r.ValidateForm(ctx, "match", form.Values{"password": "a", "confirm": "b"}, nil))
	assert.Nil(t, r.ValidateForm(ctx, "remote", form.Values{"email": "new@example.com"}, nil))
	assert.Equal(t, []string{"email taken"}, r.ValidateForm(ctx, "remote", form.Values{"email": "taken@example.com"}, nil))
	assert.Equal(t, []string{"service unavailable"}, r.ValidateForm(ctx, "remoteErr", nil, nil))
	assert.Equal(t, []string{"sync boom"}, r.ValidateForm(ctx, "panics", nil, nil))
	assert.Equal(t, []string{"async boom"}, r.ValidateForm(ctx, "asyncPanics", nil, nil))
	assert.Nil(t, r.ValidateForm(ctx, "unknown", nil, nil))

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	msgs := r.ValidateForm(timeout, "slow", nil, nil)
	require.Len(t, msgs, 1)
	assert.Equal(t, context.DeadlineExceeded.Error(), msgs[0])
}

func TestResolver_Validate(t *testing.T) {
	spy := newSpy()
	spy.types["email"] = form.Email("invalid email")
	spy.custom["signup:ageCheck"] = form.Min(18, "must be at least 18")
	spy.forms["terms"] = form.Sync(func(v form.Values, _ form.Translator) []string {
		if v.Get("terms") != true {
			return []string{"accept the terms"}
		}
		return nil
	})
	r := newTestResolver(spy)

	def := form.Definition{
		Name: "signup",
		Fields: []form.Field{
			{Name: "email", Type: "email", Required: true},
			{Name: "age", Type: "number", Validate: form.Ref{"ageCheck"}},
			{Name: "nickname", Type: "text"},
		},
		FormValidators: []string{"terms"},
	}

	res := r.Validate(context.Background(), def, form.Values{"age": 12}, nil)
	assert.False(t, res.Valid())
	assert.Equal(t, map[string]string{
		"email": "This field is required",
		"age":   "must be at least 18",
	}, res.Fields)
	assert.Equal(t, []string{"accept the terms"}, res.Form)

	res = r.Validate(context.Background(), def, form.Values{"email": "a@example.com", "age": 30, "terms": true}, nil)
	assert.True(t, res.Valid(), res)
}

type countingObserver struct{ hits, misses, failures int }

func (o *countingObserver) LookupCached(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}
func (o *countingObserver) HandlerFailed(string) { o.failures++ }

func TestResolver_Observer(t *testing.T) {
	spy := newSpy()
	spy.custom["c:boom"] = func(string, any, form.Translator) error { panic("x") }
	obs := &countingObserver{}
	r := NewResolver(spy, WithObserver(obs), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	r.ValidateField("c", "f", form.Ref{"boom"}, nil, nil)
	r.ValidateField("c", "f", form.Ref{"boom"}, nil, nil)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 2, obs.failures)
}

package plugin

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/registry"
)

// memTarget is an in-memory Target with a set of refused keys.
type memTarget struct {
	mu       sync.Mutex
	values   map[registry.Key]any
	builtins map[registry.Key]bool
}

func newMemTarget(builtins ...string) *memTarget {
	t := &memTarget{values: map[registry.Key]any{}, builtins: map[registry.Key]bool{}}
	for _, name := range builtins {
		key := registry.NewKey(registry.KindComponent, name)
		t.builtins[key] = true
		t.values[key] = "builtin-" + name
	}
	return t
}

func (t *memTarget) Has(key registry.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.values[key]
	return ok
}

func (t *memTarget) Apply(key registry.Key, value any) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.builtins[key] {
		return false, nil
	}
	t.values[key] = value
	return true, nil
}

func (t *memTarget) Remove(key registry.Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.values[key]; !ok || t.builtins[key] {
		return false
	}
	delete(t.values, key)
	return true
}

func (t *memTarget) get(key registry.Key) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[key]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestManager(t *memTarget, opts ...ManagerOption) *Manager {
	return NewManager(t, NewLedger(), append([]ManagerOption{WithLogger(quietLogger())}, opts...)...)
}

var (
	ratingKey   = registry.NewKey(registry.KindComponent, "rating")
	positiveKey = registry.NewKey(registry.KindFieldTypeValidator, "positiveNumber")
	starsKey    = registry.NewKey(registry.KindComponent, "stars")
)

func nopValidator(string, any, form.Translator) error { return nil }

func TestPlugin_Items(t *testing.T) {
	p := &Plugin{
		Name:       "A",
		Components: map[string]form.Component{"b": 2, "a": 1},
		FieldCustomValidators: map[string]map[string]form.FieldValidator{
			"signup": {"ageCheck": nopValidator},
			"shared": {"zip": nopValidator},
		},
		FieldTypeValidators: map[string]form.FieldValidator{"positiveNumber": nopValidator},
		FormValidators:      map[string]form.FormValidator{"match": form.Sync(func(form.Values, form.Translator) []string { return nil })},
		SubmissionHandlers: map[string]form.SubmissionHandler{
			"email": func(context.Context, form.Definition, string, form.Values) error { return nil },
		},
	}

	var got []string
	for _, it := range p.Items() {
		got = append(got, it.Key.String())
	}
	assert.Equal(t, []string{
		"component/a",
		"component/b",
		"fieldCustomValidator/shared:zip",
		"fieldCustomValidator/signup:ageCheck",
		"fieldTypeValidator/positiveNumber",
		"formValidator/match",
		"submissionHandler/email",
	}, got)
	assert.Len(t, p.Keys(), 7)
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	l.Set(ratingKey, "A")
	l.Set(starsKey, "A")
	l.Set(positiveKey, "B")

	owner, ok := l.Owner(ratingKey)
	require.True(t, ok)
	assert.Equal(t, "A", owner)
	assert.Equal(t, []registry.Key{ratingKey, starsKey}, l.OwnedBy("A"))

	assert.False(t, l.Release(ratingKey, "B"), "release by non-owner is a no-op")
	assert.True(t, l.Release(ratingKey, "A"))
	_, ok = l.Owner(ratingKey)
	assert.False(t, ok)

	assert.Len(t, l.Entries(), 2)
	l.Reset()
	assert.Zero(t, l.Len())
}

func TestDetect(t *testing.T) {
	target := newMemTarget("text")
	ledger := NewLedger()
	target.values[ratingKey] = "A-rating"
	ledger.Set(ratingKey, "A")
	target.values[starsKey] = "unowned"

	items := []Item{
		{Key: ratingKey, Value: "B-rating"},
		{Key: starsKey, Value: "B-stars"},
		{Key: registry.NewKey(registry.KindComponent, "text"), Value: "B-text"},
		{Key: positiveKey, Value: nopValidator},
	}

	conflicts := Detect("B", items, target, ledger)
	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{
		Kind:          registry.KindComponent,
		Key:           ratingKey,
		Name:          "rating",
		ExistingOwner: "A",
		NewOwner:      "B",
	}, conflicts[0])

	assert.Empty(t, Detect("A", items, target, ledger), "an owner never conflicts with itself")
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyWarn, false},
		{"error", StrategyError, false},
		{" Override ", StrategyOverride, false},
		{"skip", StrategySkip, false},
		{"replace", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.CodeUnknownStrategy))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecide(t *testing.T) {
	c := &Conflict{Kind: registry.KindComponent, Key: ratingKey, Name: "rating", ExistingOwner: "A", NewOwner: "B"}

	tests := []struct {
		name        string
		conflict    *Conflict
		opts        Options
		wantProceed bool
		wantCode    string
		wantLog     string
	}{
		{name: "no conflict", conflict: nil, opts: Options{Strategy: StrategyError}, wantProceed: true},
		{name: "error", conflict: c, opts: Options{Strategy: StrategyError}, wantCode: errors.CodeItemConflict},
		{name: "warn", conflict: c, opts: Options{Strategy: StrategyWarn}, wantLog: "level=WARN"},
		{name: "override", conflict: c, opts: Options{Strategy: StrategyOverride}, wantProceed: true, wantLog: "level=INFO"},
		{name: "skip", conflict: c, opts: Options{Strategy: StrategySkip}},
		{name: "empty strategy warns", conflict: c, opts: Options{}, wantLog: "level=WARN"},
		{name: "unknown", conflict: c, opts: Options{Strategy: "replace"}, wantCode: errors.CodeUnknownStrategy},
		{
			name:     "veto wins over override",
			conflict: c,
			opts:     Options{Strategy: StrategyOverride, OnConflict: func(Conflict) bool { return false }},
		},
		{
			name:        "callback approval defers to strategy",
			conflict:    c,
			opts:        Options{Strategy: StrategyOverride, OnConflict: func(Conflict) bool { return true }},
			wantProceed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			proceed, err := Decide(tt.conflict, tt.opts, slog.New(slog.NewTextHandler(&buf, nil)))
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode), err.Error())
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantProceed, proceed)
			if tt.wantLog != "" {
				assert.Contains(t, buf.String(), tt.wantLog)
				assert.Contains(t, buf.String(), "existing_owner=A")
			}
		})
	}
}

func TestDecide_ErrorNamesOwners(t *testing.T) {
	c := &Conflict{Kind: registry.KindFieldCustomValidator, Name: "signup:ageCheck", ExistingOwner: "A", NewOwner: "B"}
	_, err := Decide(c, Options{Strategy: StrategyError}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fieldCustomValidator")
	assert.Contains(t, err.Error(), `"signup:ageCheck"`)
	assert.Contains(t, err.Error(), `plugin "A"`)
	assert.Contains(t, err.Error(), `plugin "B"`)
}

func TestManager_Register(t *testing.T) {
	ctx := context.Background()
	target := newMemTarget()
	m := newTestManager(target)

	setupCalls := 0
	p := &Plugin{
		Name:                "A",
		Version:             "1.0.0",
		Components:          map[string]form.Component{"rating": "A-rating"},
		FieldTypeValidators: map[string]form.FieldValidator{"positiveNumber": nopValidator},
		Setup:               func(context.Context) error { setupCalls++; return nil },
	}
	require.NoError(t, m.Register(ctx, p))

	assert.Equal(t, 1, setupCalls)
	assert.Equal(t, "A-rating", target.get(ratingKey))
	assert.True(t, m.Has("A"))
	got, ok := m.Get("A")
	require.True(t, ok)
	assert.Same(t, p, got)

	rec, ok := m.Record("A")
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, rec.InstallID)
	assert.ElementsMatch(t, []registry.Key{ratingKey, positiveKey}, rec.Applied)

	owner, _ := m.Ledger().Owner(positiveKey)
	assert.Equal(t, "A", owner)
}

func TestManager_RegisterInvalid(t *testing.T) {
	m := newTestManager(newMemTarget())
	err := m.Register(context.Background(), &Plugin{})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidPlugin))

	err = m.Register(context.Background(), nil)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidPlugin))

	err = m.Register(context.Background(), &Plugin{
		Name:                  "bad",
		FieldCustomValidators: map[string]map[string]form.FieldValidator{"": {"x": nopValidator}},
	})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidPlugin))
}

func TestManager_Strategies(t *testing.T) {
	tests := []struct {
		strategy   Strategy
		wantRating any
		wantOwner  string
		wantErr    bool
	}{
		{StrategyWarn, "A-rating", "A", false},
		{StrategySkip, "A-rating", "A", false},
		{StrategyOverride, "B-rating", "B", false},
		{StrategyError, "A-rating", "A", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			ctx := context.Background()
			target := newMemTarget()
			m := newTestManager(target)
			require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": "A-rating"}}))

			err := m.Register(ctx, &Plugin{
				Name:       "B",
				Components: map[string]form.Component{"rating": "B-rating", "stars": "B-stars"},
			}, WithStrategy(tt.strategy))

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.CodeItemConflict))
				assert.Nil(t, target.get(starsKey), "error verdict applies nothing")
				assert.False(t, m.Has("B"))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "B-stars", target.get(starsKey), "non-conflicting items still apply")
				assert.True(t, m.Has("B"))
			}
			assert.Equal(t, tt.wantRating, target.get(ratingKey))
			owner, _ := m.Ledger().Owner(ratingKey)
			assert.Equal(t, tt.wantOwner, owner)
		})
	}
}

func TestManager_IdentityConflict(t *testing.T) {
	ctx := context.Background()
	target := newMemTarget()
	m := newTestManager(target)
	require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": "v1"}}))

	var seen []Conflict
	veto := WithOnConflict(func(c Conflict) bool {
		seen = append(seen, c)
		return false
	})
	require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": "v2"}}, veto))
	require.Len(t, seen, 1, "identity conflict is raised even with no item conflicts")
	assert.Equal(t, KindPlugin, seen[0].Kind)
	assert.Equal(t, "v1", target.get(ratingKey))

	err := m.Register(ctx, &Plugin{Name: "A"}, WithStrategy(StrategyError))
	assert.True(t, errors.HasCode(err, errors.CodePluginConflict))

	require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": "v2"}}, WithStrategy(StrategyOverride)))
	assert.Equal(t, "v2", target.get(ratingKey))
}

func TestManager_BuiltinsNeverReplaced(t *testing.T) {
	target := newMemTarget("text")
	m := newTestManager(target)
	textKey := registry.NewKey(registry.KindComponent, "text")

	for _, s := range Strategies() {
		require.NoError(t, m.Register(context.Background(), &Plugin{
			Name:       "P-" + string(s),
			Components: map[string]form.Component{"text": "plugin-text"},
		}, WithStrategy(s)))
	}
	assert.Equal(t, "builtin-text", target.get(textKey))
	_, owned := m.Ledger().Owner(textKey)
	assert.False(t, owned)
}

func TestManager_SetupError(t *testing.T) {
	target := newMemTarget()
	m := newTestManager(target)
	boom := stderrors.New("boom")

	err := m.Register(context.Background(), &Plugin{
		Name:       "A",
		Components: map[string]form.Component{"rating": "A-rating"},
		Setup:      func(context.Context) error { return boom },
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeSetupFailed))
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Has("A"))
	assert.Equal(t, "A-rating", target.get(ratingKey))
}

func TestManager_Unregister(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown", func(t *testing.T) {
		m := newTestManager(newMemTarget())
		assert.False(t, m.Unregister(ctx, "missing"))
	})

	t.Run("ledger only", func(t *testing.T) {
		target := newMemTarget()
		m := newTestManager(target)
		cleaned := false
		require.NoError(t, m.Register(ctx, &Plugin{
			Name:       "A",
			Components: map[string]form.Component{"rating": "A-rating"},
			Cleanup:    func(context.Context) error { cleaned = true; return nil },
		}))

		assert.True(t, m.Unregister(ctx, "A", WithRemoveRegistrations()))
		assert.True(t, cleaned)
		assert.False(t, m.Has("A"))
		_, owned := m.Ledger().Owner(ratingKey)
		assert.False(t, owned)
		assert.Equal(t, "A-rating", target.get(ratingKey), "stored value survives")
		assert.Empty(t, Detect("B", []Item{{Key: ratingKey}}, target, m.Ledger()))
	})

	t.Run("keep ownership", func(t *testing.T) {
		target := newMemTarget()
		m := newTestManager(target)
		require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": "A-rating"}}))
		assert.True(t, m.Unregister(ctx, "A"))
		owner, _ := m.Ledger().Owner(ratingKey)
		assert.Equal(t, "A", owner)
	})

	t.Run("purge", func(t *testing.T) {
		target := newMemTarget()
		m := newTestManager(target)
		require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": "A-rating", "stars": "A-stars"}}))
		require.NoError(t, m.Register(ctx, &Plugin{Name: "B", Components: map[string]form.Component{"rating": "B-rating"}}, WithStrategy(StrategyOverride)))

		assert.True(t, m.Unregister(ctx, "A", WithPurge()))
		assert.Nil(t, target.get(starsKey))
		assert.Equal(t, "B-rating", target.get(ratingKey), "keys taken over by another plugin are kept")
		owner, _ := m.Ledger().Owner(ratingKey)
		assert.Equal(t, "B", owner)
	})

	t.Run("cleanup error", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewManager(newMemTarget(), NewLedger(), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Cleanup: func(context.Context) error { return stderrors.New("stuck") }}))
		assert.True(t, m.Unregister(ctx, "A"))
		assert.False(t, m.Has("A"))
		assert.Contains(t, buf.String(), "Plugin cleanup failed.")
	})
}

func TestManager_AllAndReset(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemTarget())
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, m.Register(ctx, &Plugin{Name: name, Components: map[string]form.Component{name: name}}))
	}
	var names []string
	for _, p := range m.All() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	m.Reset()
	assert.Empty(t, m.All())
	assert.Zero(t, m.Ledger().Len())
}

type recordingObserver struct {
	NopObserver
	conflicts []Strategy
	applied   int
	rejected  int
	failed    []string
	replaced  []bool
	resets    int
}

func (o *recordingObserver) PluginRegistered(_ string, replaced bool) {
	o.replaced = append(o.replaced, replaced)
}
func (o *recordingObserver) PluginsReset() { o.resets++ }

func (o *recordingObserver) ConflictResolved(_ Conflict, s Strategy, _ bool) {
	o.conflicts = append(o.conflicts, s)
}
func (o *recordingObserver) ItemApplied(registry.Key, string)  { o.applied++ }
func (o *recordingObserver) ItemRejected(registry.Key, string) { o.rejected++ }
func (o *recordingObserver) PluginRegistrationFailed(name string, _ error) {
	o.failed = append(o.failed, name)
}

func TestManager_Observer(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	m := newTestManager(newMemTarget("text"), WithObserver(obs), WithDefaultStrategy(StrategySkip))

	require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": 1, "text": 1}}))
	require.NoError(t, m.Register(ctx, &Plugin{Name: "B", Components: map[string]form.Component{"rating": 2}}))
	require.Error(t, m.Register(ctx, &Plugin{Name: "C", Components: map[string]form.Component{"rating": 3}}, WithStrategy(StrategyError)))

	assert.Equal(t, 1, obs.applied)
	assert.Equal(t, 1, obs.rejected)
	assert.Equal(t, []Strategy{StrategySkip, StrategyError}, obs.conflicts)
	assert.Equal(t, []string{"C"}, obs.failed)
	assert.Equal(t, []bool{false, false}, obs.replaced)
}

func TestManager_ObserverSeesReplacedRecords(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	m := newTestManager(newMemTarget(), WithObserver(obs))

	require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": 1}}))
	require.NoError(t, m.Register(ctx, &Plugin{Name: "A", Components: map[string]form.Component{"rating": 2}}, WithStrategy(StrategyOverride)))
	require.NoError(t, m.Register(ctx, &Plugin{Name: "A"}, WithStrategy(StrategySkip)))
	assert.Equal(t, []bool{false, true}, obs.replaced)

	m.Reset()
	assert.Equal(t, 1, obs.resets)
}

// Property: after an override registration every declared key holds the
// new plugin's value and is owned by it, and after warn/skip every
// previously owned key is unchanged.
func TestManager_StrategyProperties(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		target := newMemTarget()
		m := NewManager(target, NewLedger(), WithLogger(quietLogger()))

		first := rapid.SliceOfNDistinct(rapid.SampledFrom(names), 1, len(names), rapid.ID[string]).Draw(t, "first")
		second := rapid.SliceOfNDistinct(rapid.SampledFrom(names), 1, len(names), rapid.ID[string]).Draw(t, "second")
		strategy := rapid.SampledFrom([]Strategy{StrategyWarn, StrategySkip, StrategyOverride}).Draw(t, "strategy")

		p := &Plugin{Name: "P", Components: map[string]form.Component{}}
		for _, n := range first {
			p.Components[n] = "P"
		}
		q := &Plugin{Name: "Q", Components: map[string]form.Component{}}
		for _, n := range second {
			q.Components[n] = "Q"
		}
		if err := m.Register(ctx, p); err != nil {
			t.Fatal(err)
		}
		if err := m.Register(ctx, q, WithStrategy(strategy)); err != nil {
			t.Fatal(err)
		}

		for _, n := range second {
			key := registry.NewKey(registry.KindComponent, n)
			_, conflicted := p.Components[n]
			wantValue, wantOwner := "Q", "Q"
			if conflicted && strategy != StrategyOverride {
				wantValue, wantOwner = "P", "P"
			}
			owner, _ := m.Ledger().Owner(key)
			if target.get(key) != wantValue || owner != wantOwner {
				t.Fatalf("%s: value=%v owner=%q, want %s/%s", n, target.get(key), owner, wantValue, wantOwner)
			}
		}
	})
}

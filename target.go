package formplug

import (
	"github.com/vango-dev/formplug/internal/errors"
	"github.com/vango-dev/formplug/pkg/form"
	"github.com/vango-dev/formplug/pkg/plugin"
	"github.com/vango-dev/formplug/pkg/registry"
)

// target dispatches plugin items to the runtime's stores by key kind.
type target struct {
	rt *Runtime
}

var _ plugin.Target = target{}

func (t target) Has(key registry.Key) bool {
	switch key.Kind {
	case registry.KindComponent:
		return t.rt.components.Has(key.Name)
	case registry.KindFieldCustomValidator:
		return t.rt.customValidators.Has(key.Category, key.Name)
	case registry.KindFieldTypeValidator:
		return t.rt.typeValidators.Has(key.Name)
	case registry.KindFormValidator:
		return t.rt.formValidators.Has(key.Name)
	case registry.KindSubmissionHandler:
		return t.rt.handlers.Has(key.Name)
	default:
		return false
	}
}

func (t target) Apply(key registry.Key, value any) (bool, error) {
	switch key.Kind {
	case registry.KindComponent:
		return t.rt.components.Register(key.Name, value), nil
	case registry.KindFieldCustomValidator:
		fn, ok := value.(form.FieldValidator)
		if !ok {
			return false, mismatch(key, value)
		}
		t.rt.RegisterFieldCustomValidator(key.Category, key.Name, fn)
	case registry.KindFieldTypeValidator:
		fn, ok := value.(form.FieldValidator)
		if !ok {
			return false, mismatch(key, value)
		}
		t.rt.typeValidators.Register(key.Name, fn)
	case registry.KindFormValidator:
		v, ok := value.(form.FormValidator)
		if !ok {
			return false, mismatch(key, value)
		}
		t.rt.formValidators.Register(key.Name, v)
	case registry.KindSubmissionHandler:
		h, ok := value.(form.SubmissionHandler)
		if !ok {
			return false, mismatch(key, value)
		}
		t.rt.handlers.Register(key.Name, h)
	default:
		return false, errors.New(errors.CodeInvalidValue).WithDetailf("unknown kind %q", key.Kind)
	}
	return true, nil
}

func (t target) Remove(key registry.Key) bool {
	switch key.Kind {
	case registry.KindComponent:
		return t.rt.components.Delete(key.Name)
	case registry.KindFieldCustomValidator:
		removed := t.rt.customValidators.Delete(key.Category, key.Name)
		t.rt.resolver.Invalidate(key.Category, key.Name)
		return removed
	case registry.KindFieldTypeValidator:
		return t.rt.typeValidators.Delete(key.Name)
	case registry.KindFormValidator:
		return t.rt.formValidators.Delete(key.Name)
	case registry.KindSubmissionHandler:
		return t.rt.handlers.Delete(key.Name)
	default:
		return false
	}
}

func mismatch(key registry.Key, value any) error {
	return errors.New(errors.CodeInvalidValue).WithDetailf("%s: got %T", key, value)
}

package plugin

import (
	"fmt"

	"github.com/vango-dev/formplug/pkg/registry"
)

// KindPlugin tags a plugin-identity conflict.
const KindPlugin registry.Kind = "plugin"

// Conflict is a collision between a newly declared item and one already
// owned by a different plugin.
type Conflict struct {
	Kind          registry.Kind
	Key           registry.Key
	Name          string // fully qualified
	ExistingOwner string
	NewOwner      string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %q: owned by %q, requested by %q", c.Kind, c.Name, c.ExistingOwner, c.NewOwner)
}

// Holder reports whether a key currently holds a value.
type Holder interface {
	Has(key registry.Key) bool
}

// Target is where accepted items are written.
type Target interface {
	Holder

	// Apply stores value under key. It reports false when the write was
	// refused, as for built-in components.
	Apply(key registry.Key, value any) (bool, error)

	// Remove deletes the value stored under key.
	Remove(key registry.Key) bool
}

// IdentityConflict is the conflict raised by installing an already
// installed plugin name.
func IdentityConflict(name string) Conflict {
	return Conflict{
		Kind:          KindPlugin,
		Key:           registry.Key{Kind: KindPlugin, Name: name},
		Name:          name,
		ExistingOwner: name,
		NewOwner:      name,
	}
}

// Detect returns a conflict for every item whose key already holds a value
// that the ledger attributes to a plugin other than candidate.
func Detect(candidate string, items []Item, holder Holder, ledger *Ledger) []Conflict {
	var conflicts []Conflict
	for _, it := range items {
		if !holder.Has(it.Key) {
			continue
		}
		owner, owned := ledger.Owner(it.Key)
		if !owned || owner == candidate {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Kind:          it.Key.Kind,
			Key:           it.Key,
			Name:          it.Key.QualifiedName(),
			ExistingOwner: owner,
			NewOwner:      candidate,
		})
	}
	return conflicts
}

package plugin

import (
	"sort"
	"sync"

	"github.com/vango-dev/formplug/pkg/registry"
)

// Ledger records which plugin owns each registered key. A key has at most
// one owner; built-ins never have one.
type Ledger struct {
	mu     sync.RWMutex
	owners map[registry.Key]string
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{owners: make(map[registry.Key]string)}
}

// Owner returns the plugin owning key.
func (l *Ledger) Owner(key registry.Key) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[key]
	return owner, ok
}

// Set records plugin as the owner of key, replacing any previous owner.
func (l *Ledger) Set(key registry.Key, plugin string) {
	l.mu.Lock()
	l.owners[key] = plugin
	l.mu.Unlock()
}

// Release removes the entry for key if plugin currently owns it.
func (l *Ledger) Release(key registry.Key, plugin string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[key] != plugin {
		return false
	}
	delete(l.owners, key)
	return true
}

// OwnedBy returns the keys owned by plugin, sorted by their string form.
func (l *Ledger) OwnedBy(plugin string) []registry.Key {
	l.mu.RLock()
	var keys []registry.Key
	for key, owner := range l.owners {
		if owner == plugin {
			keys = append(keys, key)
		}
	}
	l.mu.RUnlock()
	sortKeys(keys)
	return keys
}

// Entry is one ledger row.
type Entry struct {
	Key   registry.Key
	Owner string
}

// Entries returns a snapshot of the ledger, sorted by key.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	entries := make([]Entry, 0, len(l.owners))
	for key, owner := range l.owners {
		entries = append(entries, Entry{Key: key, Owner: owner})
	}
	l.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
	return entries
}

// Len returns the number of owned keys.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.owners)
}

// Reset forgets every owner.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.owners = make(map[registry.Key]string)
	l.mu.Unlock()
}

func sortKeys(keys []registry.Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}

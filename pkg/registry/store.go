package registry

import (
	"sort"
	"sync"
)

// Store is a name → value map for one resource kind.
// It is safe for concurrent use.
type Store[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

// NewStore creates an empty store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{data: make(map[string]V)}
}

// Register stores v under name, replacing any previous value.
func (s *Store[V]) Register(name string, v V) {
	s.mu.Lock()
	s.data[name] = v
	s.mu.Unlock()
}

// Get returns the value stored under name.
func (s *Store[V]) Get(name string) (V, bool) {
	s.mu.RLock()
	v, ok := s.data[name]
	s.mu.RUnlock()
	return v, ok
}

// Has reports whether name is registered.
func (s *Store[V]) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Delete removes name and reports whether it was present.
func (s *Store[V]) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[name]; !ok {
		return false
	}
	delete(s.data, name)
	return true
}

// List returns registered names in lexicographic order.
func (s *Store[V]) List() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Reset removes every entry.
func (s *Store[V]) Reset() {
	s.mu.Lock()
	s.data = make(map[string]V)
	s.mu.Unlock()
}

// SortedNames returns the keys of m in ascending order.
func SortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

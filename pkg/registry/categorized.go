package registry

import (
	"sort"
	"sync"
)

// Categorized is a store scoped by category, one level deep.
type Categorized[V any] struct {
	mu         sync.RWMutex
	categories map[string]*Store[V]
}

// NewCategorized creates an empty categorized store.
func NewCategorized[V any]() *Categorized[V] {
	return &Categorized[V]{categories: make(map[string]*Store[V])}
}

// Register stores v under (category, name), replacing any previous value.
func (c *Categorized[V]) Register(category, name string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.categories[category]
	if !ok {
		s = NewStore[V]()
		c.categories[category] = s
	}
	s.Register(name, v)
}

// Get returns the value stored under (category, name).
func (c *Categorized[V]) Get(category, name string) (V, bool) {
	c.mu.RLock()
	s, ok := c.categories[category]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	return s.Get(name)
}

// Has reports whether (category, name) is registered.
func (c *Categorized[V]) Has(category, name string) bool {
	_, ok := c.Get(category, name)
	return ok
}

// Delete removes (category, name) and reports whether it was present.
// Empty categories are dropped.
func (c *Categorized[V]) Delete(category, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.categories[category]
	if !ok {
		return false
	}
	removed := s.Delete(name)
	if s.Len() == 0 {
		delete(c.categories, category)
	}
	return removed
}

// List returns the names registered in category, sorted.
func (c *Categorized[V]) List(category string) []string {
	c.mu.RLock()
	s, ok := c.categories[category]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.List()
}

// Categories returns every category holding at least one entry, sorted.
func (c *Categorized[V]) Categories() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.categories))
	for category := range c.categories {
		out = append(out, category)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Reset removes every category.
func (c *Categorized[V]) Reset() {
	c.mu.Lock()
	c.categories = make(map[string]*Store[V])
	c.mu.Unlock()
}

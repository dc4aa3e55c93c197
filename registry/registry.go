// Package registry defines the host component registry the loader writes
// into, plus an in-memory implementation.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-scriptloader/compiler"
)

// ErrKeyCollision is returned when a key is registered twice.
var ErrKeyCollision = errors.New("registry: key already registered")

// Registry receives eligible definitions under unique keys.
type Registry interface {
	Register(key string, def *compiler.Definition) error
}

// Func adapts a function to Registry.
type Func func(key string, def *compiler.Definition) error

// Register implements Registry.
func (f Func) Register(key string, def *compiler.Definition) error {
	if f == nil {
		return fmt.Errorf("registry: func is nil")
	}
	return f(key, def)
}

// Memory stores definitions keyed by name, remembering registration order.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*compiler.Definition
	order   []string
}

// NewMemory constructs an empty registry.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*compiler.Definition),
	}
}

// Register stores def under key guarding against duplicates.
func (m *Memory) Register(key string, def *compiler.Definition) error {
	if key == "" {
		return fmt.Errorf("registry: key must not be empty")
	}
	if def == nil {
		return fmt.Errorf("registry: definition %q is nil", key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]*compiler.Definition)
	}
	if _, exists := m.entries[key]; exists {
		return fmt.Errorf("%w: %q", ErrKeyCollision, key)
	}
	m.entries[key] = def
	m.order = append(m.order, key)
	return nil
}

// Lookup returns the definition stored under key.
func (m *Memory) Lookup(key string) (*compiler.Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.entries[key]
	return def, ok
}

// Keys returns registered keys in registration order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Len reports the number of registered entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

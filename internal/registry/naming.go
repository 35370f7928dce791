package registry

import (
	"context"
	"sync"

	"github.com/xraph/binder/internal/errors"
)

// MapNaming is a static naming facility.
type MapNaming struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewMapNaming creates a naming facility serving entries.
func NewMapNaming(entries map[string]any) *MapNaming {
	m := &MapNaming{entries: make(map[string]any, len(entries))}
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

// Bind sets the object served for name.
func (m *MapNaming) Bind(name string, obj any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = obj
}

// Lookup implements naming.NamingContext.
func (m *MapNaming) Lookup(_ context.Context, name string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.entries[name]
	if !ok {
		return nil, errors.ErrNameNotFound(name)
	}
	return obj, nil
}

// UnavailableNaming is a naming facility that has not been initialized.
type UnavailableNaming struct {
	Facility string
}

// Lookup implements naming.NamingContext.
func (u UnavailableNaming) Lookup(context.Context, string) (any, error) {
	facility := u.Facility
	if facility == "" {
		facility = "naming"
	}
	return nil, errors.ErrTransientUnavailable(facility)
}

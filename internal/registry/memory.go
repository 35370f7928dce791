package registry

import (
	"context"
	"sync"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/naming"
)

// MemoryServices is an in-process ranked service registry.
type MemoryServices struct {
	mu     sync.RWMutex
	next   int64
	byName map[string][]naming.ServiceCandidate
}

// NewMemoryServices creates an empty registry.
func NewMemoryServices() *MemoryServices {
	return &MemoryServices{byName: make(map[string][]naming.ServiceCandidate)}
}

// Publish registers obj under name and returns its service id. Ids increase
// with publication order, so earlier services win ranking ties.
func (m *MemoryServices) Publish(name, typ string, ranking int, obj any) (int64, error) {
	if name == "" {
		return 0, errors.ErrEmptyName
	}
	if obj == nil {
		return 0, errors.ErrNilBinding
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	m.byName[name] = append(m.byName[name], naming.ServiceCandidate{
		ID:      m.next,
		Name:    name,
		Type:    typ,
		Ranking: ranking,
		Object:  obj,
	})
	return m.next, nil
}

// Withdraw removes a published service.
func (m *MemoryServices) Withdraw(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, candidates := range m.byName {
		for i, c := range candidates {
			if c.ID != id {
				continue
			}
			candidates = append(candidates[:i], candidates[i+1:]...)
			if len(candidates) == 0 {
				delete(m.byName, name)
			} else {
				m.byName[name] = candidates
			}
			return true
		}
	}
	return false
}

// Services implements naming.ServiceRegistry.
func (m *MemoryServices) Services(_ context.Context, name, typ string) ([]naming.ServiceCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []naming.ServiceCandidate
	for _, c := range m.byName[name] {
		if typ != "" && c.Type != typ {
			continue
		}
		out = append(out, c)
	}
	naming.SortCandidates(out)
	return out, nil
}

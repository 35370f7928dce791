package naming

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/binder/internal/errors"
)

// ServiceCandidate is one match returned by an external service registry.
type ServiceCandidate struct {
	ID      int64
	Name    string
	Type    string
	Ranking int
	Object  any
}

// ServiceRegistry is an external registry of named services. Candidates are
// returned in the registry's precedence order; the resolver keeps it.
type ServiceRegistry interface {
	Services(ctx context.Context, name, typ string) ([]ServiceCandidate, error)
}

// SortCandidates orders candidates by ranking, highest first, then by id,
// lowest first.
func SortCandidates(candidates []ServiceCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Ranking != candidates[j].Ranking {
			return candidates[i].Ranking > candidates[j].Ranking
		}
		return candidates[i].ID < candidates[j].ID
	})
}

// Redirector is implemented by located objects that must be dereferenced
// through the external system before use.
type Redirector interface {
	Redirect(ctx context.Context, info *ResourceInfo) (any, error)
}

// NamingContext is a naming facility consulted by name. Implementations
// return a TRANSIENT_UNAVAILABLE error when they are not initialized.
type NamingContext interface {
	Lookup(ctx context.Context, name string) (any, error)
}

// NamingFunc adapts a function to NamingContext.
type NamingFunc func(ctx context.Context, name string) (any, error)

func (f NamingFunc) Lookup(ctx context.Context, name string) (any, error) {
	return f(ctx, name)
}

// DefaultProvider creates the fallback resource for a declared type.
type DefaultProvider interface {
	CreateDefault(ctx context.Context, typ string, info *ResourceInfo) (any, error)
}

// DefaultProviderFunc adapts a function to DefaultProvider.
type DefaultProviderFunc func(ctx context.Context, typ string, info *ResourceInfo) (any, error)

func (f DefaultProviderFunc) CreateDefault(ctx context.Context, typ string, info *ResourceInfo) (any, error) {
	return f(ctx, typ, info)
}

// DefaultProviders maps declared types to default-resource providers.
type DefaultProviders struct {
	mu     sync.RWMutex
	byType map[string]DefaultProvider
}

// NewDefaultProviders creates an empty provider set.
func NewDefaultProviders() *DefaultProviders {
	return &DefaultProviders{byType: make(map[string]DefaultProvider)}
}

// Register sets the provider for typ.
func (d *DefaultProviders) Register(typ string, p DefaultProvider) error {
	if typ == "" {
		return errors.ErrConfiguration("default resource type cannot be empty", nil)
	}
	if p == nil {
		return errors.ErrNilFactory
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byType[typ] = p
	return nil
}

func (d *DefaultProviders) provider(typ string) (DefaultProvider, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byType[typ]
	return p, ok
}

// MergeFunc resolves two contributions of the same shared name by different
// units. It runs once per conflicting pair while the shared namespace is
// locked and must not call back into the engine.
type MergeFunc func(name string, saved, incoming Binding) (Binding, error)

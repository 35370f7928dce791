package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xraph/vessel"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/naming"
)

// factoryKeyPrefix namespaces resource factories among a container's services.
const factoryKeyPrefix = "binder.factory/"

// FactoryKey returns the container service name a factory for name and
// declared type is registered under.
func FactoryKey(name, typ string) string {
	return factoryKeyPrefix + name + "#" + typ
}

func parseFactoryKey(key string) (name, typ string, ok bool) {
	rest, found := strings.CutPrefix(key, factoryKeyPrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '#')
	if i < 0 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// VesselFactories is a naming.FactoryRegistry over a vessel container.
// Factories registered on the container directly under FactoryKey names are
// found too.
type VesselFactories struct {
	container vessel.Vessel

	mu    sync.RWMutex
	types map[string][]string
	seen  int
}

// NewVesselFactories wraps container, creating one when nil.
func NewVesselFactories(container vessel.Vessel) *VesselFactories {
	if container == nil {
		container = vessel.New()
	}
	return &VesselFactories{
		container: container,
		types:     make(map[string][]string),
	}
}

// Container returns the underlying container.
func (v *VesselFactories) Container() vessel.Vessel {
	return v.container
}

// Register adds a factory for name and declared type as a container service.
func (v *VesselFactories) Register(name, typ string, factory naming.ResourceFactory) error {
	if name == "" {
		return errors.ErrEmptyName
	}
	if factory == nil {
		return errors.ErrNilFactory
	}

	err := v.container.Register(FactoryKey(name, typ), func(vessel.Vessel) (any, error) {
		return factory, nil
	})
	if err != nil {
		return errors.ErrConfiguration("register resource factory '"+name+"'", err)
	}

	v.mu.Lock()
	v.index(name, typ)
	v.mu.Unlock()
	return nil
}

func (v *VesselFactories) index(name, typ string) {
	for _, t := range v.types[name] {
		if t == typ {
			return
		}
	}
	v.types[name] = append(v.types[name], typ)
}

// refresh indexes factories registered on the container behind our back.
func (v *VesselFactories) refresh() {
	services := v.container.Services()

	v.mu.Lock()
	defer v.mu.Unlock()

	if len(services) == v.seen {
		return
	}
	v.seen = len(services)
	for _, key := range services {
		if name, typ, ok := parseFactoryKey(key); ok {
			v.index(name, typ)
		}
	}
}

func (v *VesselFactories) candidates(name, typ string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var keys []string
	for _, t := range v.types[name] {
		if typ == "" || t == typ {
			keys = append(keys, FactoryKey(name, t))
		}
	}
	return keys
}

// FindFactory implements naming.FactoryRegistry.
func (v *VesselFactories) FindFactory(ctx context.Context, name, typ string) (naming.ResourceFactory, bool, error) {
	keys := v.candidates(name, typ)
	if len(keys) == 0 {
		v.refresh()
		keys = v.candidates(name, typ)
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		instance, err := v.container.Resolve(key)
		if err != nil {
			return nil, false, errors.ErrInternalInvariant("resolve resource factory "+key, err)
		}
		factory, ok := instance.(naming.ResourceFactory)
		if !ok {
			return nil, false, errors.ErrInternalInvariant(
				fmt.Sprintf("service %s is %T, not a resource factory", key, instance), nil)
		}
		return factory, true, nil
	}
	return nil, false, nil
}

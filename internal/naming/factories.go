package naming

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/metrics"
)

// FactoryRegistry finds the resource factory producing a binding name. An
// empty typ matches a factory of any type.
type FactoryRegistry interface {
	FindFactory(ctx context.Context, name, typ string) (ResourceFactory, bool, error)
}

type factoryEntry struct {
	typ     string
	factory ResourceFactory
}

// Factories is the engine's built-in FactoryRegistry. Until MarkReady is
// called, a lookup that finds nothing waits for a producer to register, up to
// the configured timeout. The first caller to exhaust the timeout disables
// waiting for every later caller for the life of the process.
type Factories struct {
	mu      sync.RWMutex
	entries map[string][]factoryEntry
	ready   bool
	changed chan struct{}

	timeout  time.Duration
	degraded atomic.Bool

	log     logger.Logger
	metrics metrics.Collector
}

// NewFactories creates a registry that waits at most timeout for producers.
func NewFactories(timeout time.Duration, log logger.Logger, m metrics.Collector) *Factories {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Factories{
		entries: make(map[string][]factoryEntry),
		changed: make(chan struct{}),
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// Register adds a factory for name and declared type, waking waiters.
func (f *Factories) Register(name, typ string, factory ResourceFactory) error {
	if name == "" {
		return errors.ErrEmptyName
	}
	if factory == nil {
		return errors.ErrNilFactory
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range f.entries[name] {
		if e.typ == typ {
			return errors.ErrConfiguration("resource factory for '"+name+"' of type '"+typ+"' already registered", nil)
		}
	}
	f.entries[name] = append(f.entries[name], factoryEntry{typ: typ, factory: factory})
	f.broadcastLocked()
	return nil
}

// Unregister removes the factory for name and type.
func (f *Factories) Unregister(name, typ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.entries[name]
	for i, e := range entries {
		if e.typ == typ {
			entries = append(entries[:i], entries[i+1:]...)
			if len(entries) == 0 {
				delete(f.entries, name)
			} else {
				f.entries[name] = entries
			}
			return true
		}
	}
	return false
}

// MarkReady declares that every producer has registered. Lookups stop waiting.
func (f *Factories) MarkReady() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = true
	f.broadcastLocked()
}

// Degraded reports whether the wait timeout has been exhausted.
func (f *Factories) Degraded() bool {
	return f.degraded.Load()
}

func (f *Factories) broadcastLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *Factories) findLocked(name, typ string) (ResourceFactory, bool) {
	for _, e := range f.entries[name] {
		if typ == "" || e.typ == typ {
			return e.factory, true
		}
	}
	return nil, false
}

// FindFactory implements FactoryRegistry.
func (f *Factories) FindFactory(ctx context.Context, name, typ string) (ResourceFactory, bool, error) {
	var deadline <-chan time.Time

	for {
		f.mu.RLock()
		factory, ok := f.findLocked(name, typ)
		wait := !ok && !f.ready && f.timeout > 0 && !f.degraded.Load()
		changed := f.changed
		f.mu.RUnlock()

		if ok {
			return factory, true, nil
		}
		if !wait {
			return nil, false, nil
		}

		if deadline == nil {
			timer := time.NewTimer(f.timeout)
			defer timer.Stop()
			deadline = timer.C
		}

		select {
		case <-changed:
		case <-deadline:
			if f.degraded.CompareAndSwap(false, true) {
				f.metrics.FactoryWaitDegraded()
				f.log.Warn("resource factory wait timed out, later lookups will not wait",
					logger.Binding(name),
					logger.String("type", typ),
					logger.Duration("timeout", f.timeout))
			}
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

package naming

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/xraph/binder/internal/errors"
)

// IndirectRef is a deployment-time placeholder resolved at use time, possibly
// through further indirection. Two references are never equal unless they are
// the same pointer: each one is a distinct binding decision.
type IndirectRef struct {
	// Name is the logical name the reference was declared under.
	Name string
	// Target is the binding name the reference points at. Never empty.
	Target string
	// Type is the declared type of the referenced object.
	Type string
	// Info is the reference's own resource metadata, if it carries any.
	Info *ResourceInfo
	// Listener names the binding listener that supplied Target, if any.
	Listener string
	// Default marks an auto-derived binding used when nothing was declared.
	Default bool

	id string

	mu       sync.Mutex
	resolved bool
	instance any
	perScope map[ScopeID]any
}

// RefOption configures an IndirectRef.
type RefOption func(*IndirectRef)

// WithResourceInfo attaches resource metadata to the reference.
func WithResourceInfo(info *ResourceInfo) RefOption {
	return func(r *IndirectRef) {
		r.Info = info
	}
}

// WithListener records the binding listener that supplied the target.
func WithListener(listener string) RefOption {
	return func(r *IndirectRef) {
		r.Listener = listener
	}
}

// AsDefault marks the reference as an auto-derived default binding.
func AsDefault() RefOption {
	return func(r *IndirectRef) {
		r.Default = true
	}
}

// NewIndirectRef creates a reference from name to target.
func NewIndirectRef(name, target, typ string, opts ...RefOption) (*IndirectRef, error) {
	if target == "" {
		return nil, errors.ErrEmptyTarget
	}

	ref := &IndirectRef{
		Name:   name,
		Target: target,
		Type:   typ,
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(ref)
	}
	return ref, nil
}

// MustIndirectRef is NewIndirectRef that panics - use only for static declarations.
func MustIndirectRef(name, target, typ string, opts ...RefOption) *IndirectRef {
	ref, err := NewIndirectRef(name, target, typ, opts...)
	if err != nil {
		panic(fmt.Sprintf("invalid indirect reference %s: %v", name, err))
	}
	return ref
}

func (r *IndirectRef) DeclaredType() string { return r.Type }
func (r *IndirectRef) binding() {}

// ID returns the unique identity of this reference.
func (r *IndirectRef) ID() string { return r.id }

// DisplayName returns the logical name used in diagnostics.
func (r *IndirectRef) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Target
}

func (r *IndirectRef) String() string {
	s := fmt.Sprintf("IndirectRef[%s -> %s", r.DisplayName(), r.Target)
	if r.Type != "" {
		s += ", type=" + r.Type
	}
	if r.Default {
		s += ", default"
	}
	if r.Listener != "" {
		s += ", listener=" + r.Listener
	}
	return s + "]"
}

// scopeBound reports whether the target's meaning depends on the scope the
// reference is resolved from: component names and relative names.
func (r *IndirectRef) scopeBound() bool {
	level, ok := LevelOf(r.Target)
	return !ok || level.Private()
}

// cached returns the memoized object visible from scope id. scoped is true
// when the object was memoized for that scope only.
func (r *IndirectRef) cached(id ScopeID) (obj any, scoped, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if obj, ok = r.perScope[id]; ok {
		return obj, true, true
	}
	return r.instance, false, r.resolved
}

// remember memoizes instance for scope id, or for every scope without its
// own memo when id is NoScope, unless another resolution won. It returns the
// memoized object.
func (r *IndirectRef) remember(id ScopeID, instance any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == NoScope {
		if !r.resolved {
			r.instance = instance
			r.resolved = true
		}
		return r.instance
	}
	if obj, ok := r.perScope[id]; ok {
		return obj
	}
	if r.perScope == nil {
		r.perScope = make(map[ScopeID]any)
	}
	r.perScope[id] = instance
	return instance
}

// forgetScope drops the object memoized for scope id.
func (r *IndirectRef) forgetScope(id ScopeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.perScope, id)
}

// Forget drops every memoized object so the next lookup resolves again.
func (r *IndirectRef) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instance = nil
	r.resolved = false
	r.perScope = nil
}

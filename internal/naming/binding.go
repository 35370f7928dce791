package naming

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/xraph/binder/internal/errors"
)

// Binding is a value bound to a name. The set of variants is closed:
// *Value, *LazyValue, *IndirectRef and *FactoryRef.
type Binding interface {
	// DeclaredType returns the type the binding was declared with, or "".
	DeclaredType() string

	binding()
}

// AuthType selects who signs on to a resource.
type AuthType int

const (
	AuthContainer AuthType = iota
	AuthApplication
)

func (a AuthType) String() string {
	if a == AuthApplication {
		return "application"
	}
	return "container"
}

// SharingScope says whether a resource may be shared between users.
type SharingScope int

const (
	Shareable SharingScope = iota
	Unshareable
)

func (s SharingScope) String() string {
	if s == Unshareable {
		return "unshareable"
	}
	return "shareable"
}

// ResourceInfo is the resource metadata handed to resource factories.
type ResourceInfo struct {
	Name            string
	Type            string
	Auth            AuthType
	Sharing         SharingScope
	IsolationLevel  int
	CommitPriority  int
	LoginProperties map[string]string
	Properties      map[string]string
}

// Value is a terminal object.
type Value struct {
	Object any
	Type   string
}

// NewValue binds a ready-made object.
func NewValue(obj any, typ string) *Value {
	return &Value{Object: obj, Type: typ}
}

func (v *Value) DeclaredType() string { return v.Type }
func (v *Value) binding() {}

func (v *Value) String() string {
	return fmt.Sprintf("Value[%s]", typeOrUnknown(v.Type, v.Object))
}

// Producer creates the object behind a LazyValue.
type Producer func(ctx context.Context) (any, error)

// LazyValue is a terminal object created on first use and memoized.
type LazyValue struct {
	Type    string
	produce Producer

	mu       sync.RWMutex
	instance any
}

// NewLazyValue binds an object produced on first lookup.
func NewLazyValue(typ string, produce Producer) (*LazyValue, error) {
	if produce == nil {
		return nil, errors.ErrNilFactory
	}
	return &LazyValue{Type: typ, produce: produce}, nil
}

func (l *LazyValue) DeclaredType() string { return l.Type }
func (l *LazyValue) binding() {}

// Get returns the memoized object, producing it on first call.
func (l *LazyValue) Get(ctx context.Context) (any, error) {
	l.mu.RLock()
	if l.instance != nil {
		instance := l.instance
		l.mu.RUnlock()
		return instance, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.instance != nil {
		return l.instance, nil
	}

	instance, err := l.produce(ctx)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, errors.ErrInternalInvariant("lazy binding of type "+l.Type+" produced nil", nil)
	}

	l.instance = instance
	return instance, nil
}

func (l *LazyValue) String() string {
	return fmt.Sprintf("LazyValue[%s]", typeOrUnknown(l.Type, nil))
}

// sameBinding reports whether two contributions denote the same binding.
func sameBinding(a, b Binding) bool {
	if a == b {
		return true
	}
	va, ok := a.(*Value)
	if !ok {
		return false
	}
	vb, ok := b.(*Value)
	if !ok {
		return false
	}
	return va.Type == vb.Type && reflect.DeepEqual(va.Object, vb.Object)
}

func typeOrUnknown(typ string, obj any) string {
	if typ != "" {
		return typ
	}
	if obj != nil {
		return fmt.Sprintf("%T", obj)
	}
	return "unknown"
}

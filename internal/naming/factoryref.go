package naming

import (
	"context"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xraph/binder/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResourceFactory produces resources. A nil object with a nil error means the
// factory has nothing for the request.
type ResourceFactory interface {
	CreateResource(ctx context.Context, info *ResourceInfo) (any, error)
}

// ResourceFactoryFunc adapts a function to ResourceFactory.
type ResourceFactoryFunc func(ctx context.Context, info *ResourceInfo) (any, error)

func (f ResourceFactoryFunc) CreateResource(ctx context.Context, info *ResourceInfo) (any, error) {
	return f(ctx, info)
}

// Properties are the construction properties of a factory.
type Properties map[string]string

func (p Properties) clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// FactoryBuilder rebuilds a resource factory from its construction properties.
type FactoryBuilder interface {
	Key() string
	Build(props Properties) (ResourceFactory, error)
}

// Builders maps declared types to the builder that constructs their factories.
type Builders struct {
	mu     sync.RWMutex
	byType map[string]FactoryBuilder
}

// NewBuilders creates an empty builder registry.
func NewBuilders() *Builders {
	return &Builders{byType: make(map[string]FactoryBuilder)}
}

// Register associates a builder with a declared type.
func (b *Builders) Register(typ string, builder FactoryBuilder) error {
	if typ == "" {
		return errors.ErrConfiguration("factory builder type cannot be empty", nil)
	}
	if builder == nil {
		return errors.ErrNilFactory
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.byType[typ]; exists {
		return errors.ErrConfiguration("factory builder for type '"+typ+"' already registered", nil)
	}
	b.byType[typ] = builder
	return nil
}

// Builder returns the builder registered for typ.
func (b *Builders) Builder(typ string) (FactoryBuilder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	builder, ok := b.byType[typ]
	return builder, ok
}

// FactoryRef wraps a dynamically created resource factory. It is the terminal
// node of indirection chains and the only persisted artifact: it serializes to
// its declared type, builder key and construction properties.
type FactoryRef struct {
	Type       string
	BuilderKey string

	factory ResourceFactory
	props   Properties
}

// NewFactoryRef wraps factory. props must be sufficient for the builder
// registered under typ to rebuild an equivalent factory.
func NewFactoryRef(typ, builderKey string, factory ResourceFactory, props Properties) (*FactoryRef, error) {
	if factory == nil {
		return nil, errors.ErrNilFactory
	}
	return &FactoryRef{
		Type:       typ,
		BuilderKey: builderKey,
		factory:    factory,
		props:      props.clone(),
	}, nil
}

// BuildFactoryRef constructs the factory for typ through its registered builder.
func BuildFactoryRef(typ string, props Properties, builders *Builders) (*FactoryRef, error) {
	builder, ok := builders.Builder(typ)
	if !ok {
		return nil, errors.ErrConfiguration("no factory builder registered for type '"+typ+"'", nil)
	}
	factory, err := builder.Build(props.clone())
	if err != nil {
		return nil, errors.ErrConfiguration("factory builder "+builder.Key()+" failed", err)
	}
	return NewFactoryRef(typ, builder.Key(), factory, props)
}

func (r *FactoryRef) DeclaredType() string { return r.Type }
func (r *FactoryRef) binding() {}

// Factory returns the wrapped factory.
func (r *FactoryRef) Factory() ResourceFactory { return r.factory }

// Properties returns a copy of the construction properties.
func (r *FactoryRef) Properties() Properties { return r.props.clone() }

// CreateResource invokes the factory. The reference exists only because a
// factory was expected to produce something, so nil is an invariant violation.
func (r *FactoryRef) CreateResource(ctx context.Context, info *ResourceInfo) (any, error) {
	obj, err := r.factory.CreateResource(ctx, info)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.ErrInternalInvariant(
			fmt.Sprintf("resource factory %T for type %s returned nil", r.factory, r.Type), nil)
	}
	return obj, nil
}

// String never includes the construction properties; they may hold secrets.
func (r *FactoryRef) String() string {
	var factory string
	if s, ok := r.factory.(fmt.Stringer); ok {
		factory = s.String()
	} else {
		factory = fmt.Sprintf("%T", r.factory)
	}
	return fmt.Sprintf("FactoryRef[type=%s, factory=%s]", r.Type, factory)
}

type factoryRefWire struct {
	Type       string     `json:"type"`
	Builder    string     `json:"builder"`
	Properties Properties `json:"properties,omitempty"`
}

// MarshalJSON writes the persisted form of the reference.
func (r *FactoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(factoryRefWire{
		Type:       r.Type,
		Builder:    r.BuilderKey,
		Properties: r.props,
	})
}

// DecodeFactoryRef reconstructs a reference from its persisted form by
// re-resolving the builder for its declared type. Any failure is an i/o error.
func DecodeFactoryRef(data []byte, builders *Builders) (*FactoryRef, error) {
	var wire factoryRefWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errors.ErrIO("decode factory reference", err)
	}
	if wire.Type == "" {
		return nil, errors.ErrIO("decode factory reference", fmt.Errorf("missing declared type"))
	}

	builder, ok := builders.Builder(wire.Type)
	if !ok {
		return nil, errors.ErrIO("decode factory reference",
			fmt.Errorf("no factory builder registered for type %s", wire.Type))
	}
	if wire.Builder != "" && wire.Builder != builder.Key() {
		return nil, errors.ErrIO("decode factory reference",
			fmt.Errorf("builder %s registered for type %s, reference was written by %s",
				builder.Key(), wire.Type, wire.Builder))
	}

	factory, err := builder.Build(wire.Properties.clone())
	if err != nil {
		return nil, errors.ErrIO("rebuild resource factory", err)
	}
	if factory == nil {
		return nil, errors.ErrIO("rebuild resource factory",
			fmt.Errorf("builder %s returned no factory", builder.Key()))
	}

	return &FactoryRef{
		Type:       wire.Type,
		BuilderKey: builder.Key(),
		factory:    factory,
		props:      wire.Properties,
	}, nil
}

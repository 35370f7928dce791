package registry

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/naming"
)

// Builder keys understood by StandardBuilder.
const (
	StaticBuilderKey = "static"
	EnvBuilderKey    = "env"
)

// StaticBuilder builds factories producing the "value" property.
type StaticBuilder struct{}

func (StaticBuilder) Key() string { return StaticBuilderKey }

func (StaticBuilder) Build(props naming.Properties) (naming.ResourceFactory, error) {
	value, ok := props["value"]
	if !ok {
		return nil, fmt.Errorf("static factory needs a value property")
	}
	return naming.ResourceFactoryFunc(func(context.Context, *naming.ResourceInfo) (any, error) {
		return value, nil
	}), nil
}

// EnvBuilder builds factories reading the environment variable named by the
// "var" property when the resource is created. "default" is used when the
// variable is unset.
type EnvBuilder struct{}

func (EnvBuilder) Key() string { return EnvBuilderKey }

func (EnvBuilder) Build(props naming.Properties) (naming.ResourceFactory, error) {
	name := props["var"]
	if name == "" {
		return nil, fmt.Errorf("env factory needs a var property")
	}
	fallback, hasFallback := props["default"]

	return naming.ResourceFactoryFunc(func(context.Context, *naming.ResourceInfo) (any, error) {
		if v, ok := os.LookupEnv(name); ok {
			return v, nil
		}
		if hasFallback {
			return fallback, nil
		}
		return nil, errors.ErrConfiguration("environment variable "+name+" is not set", nil).
			WithContext("var", name)
	}), nil
}

// StandardBuilder returns the built-in builder registered under key.
func StandardBuilder(key string) (naming.FactoryBuilder, bool) {
	switch key {
	case StaticBuilderKey:
		return StaticBuilder{}, true
	case EnvBuilderKey:
		return EnvBuilder{}, true
	default:
		return nil, false
	}
}

// RegisterBuilders registers a standard builder for each declared type in
// types, which maps types to builder keys.
func RegisterBuilders(builders *naming.Builders, types map[string]string) error {
	names := make([]string, 0, len(types))
	for typ := range types {
		names = append(names, typ)
	}
	sort.Strings(names)

	for _, typ := range names {
		builder, ok := StandardBuilder(types[typ])
		if !ok {
			return errors.ErrConfiguration("unknown factory builder '"+types[typ]+"'", nil).
				WithContext("type", typ)
		}
		if err := builders.Register(typ, builder); err != nil {
			return err
		}
	}
	return nil
}

// Registrar accepts resource factories. Both the engine's built-in registry
// and VesselFactories are registrars.
type Registrar interface {
	Register(name, typ string, factory naming.ResourceFactory) error
}

// RegisterResources builds each declared resource through builders and
// registers it on r.
func RegisterResources(r Registrar, resources []config.ResourceConfig, builders *naming.Builders) error {
	for _, res := range resources {
		ref, err := naming.BuildFactoryRef(res.Type, naming.Properties(res.Properties), builders)
		if err != nil {
			return errors.ErrConfiguration("resource factory '"+res.Name+"'", err)
		}
		if err := r.Register(res.Name, res.Type, ref); err != nil {
			return err
		}
	}
	return nil
}

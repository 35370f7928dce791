// Package manifest reads static deployments from YAML and applies them to a
// naming engine.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/naming"
)

// Manifest lists units in deployment order.
type Manifest struct {
	Units []Unit `yaml:"units"`
}

// Unit is one deployment unit and the bindings it contributes.
type Unit struct {
	Application string    `yaml:"application"`
	Module      string    `yaml:"module"`
	Component   string    `yaml:"component"`
	Bindings    []Binding `yaml:"bindings"`
}

// DeploymentUnit returns the engine identity of u.
func (u Unit) DeploymentUnit() naming.DeploymentUnit {
	return naming.DeploymentUnit{Application: u.Application, Module: u.Module, Component: u.Component}
}

// Binding declares exactly one of Value, Target or Factory.
type Binding struct {
	Level string `yaml:"level"`
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`

	Value any `yaml:"value"`

	Target   string `yaml:"target"`
	Default  bool   `yaml:"default"`
	Listener string `yaml:"listener"`

	Factory map[string]string `yaml:"factory"`
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(m); err != nil {
		return nil, errors.ErrConfiguration("failed to parse manifest", err)
	}
	return m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrConfiguration("failed to read manifest "+path, err)
	}
	return Parse(data)
}

// Batch converts the unit's bindings. builders rebuild factory bindings and
// may be nil when the unit declares none.
func (u Unit) Batch(builders *naming.Builders) (naming.Batch, error) {
	batch := naming.Batch{}
	for i, b := range u.Bindings {
		level, ok := naming.ParseLevel(b.Level)
		if !ok {
			return nil, errors.ErrConfiguration(fmt.Sprintf("binding %d of %s: unknown level '%s'", i, u.DeploymentUnit(), b.Level), nil)
		}

		binding, err := b.build(builders)
		if err != nil {
			return nil, errors.ErrConfiguration(fmt.Sprintf("binding '%s' of %s", b.Name, u.DeploymentUnit()), err)
		}
		batch = batch.Add(level, b.Name, binding)
	}
	return batch, nil
}

func (b Binding) build(builders *naming.Builders) (naming.Binding, error) {
	set := 0
	for _, present := range []bool{b.Value != nil, b.Target != "", b.Factory != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of value, target or factory is required")
	}

	switch {
	case b.Value != nil:
		return naming.NewValue(b.Value, b.Type), nil

	case b.Target != "":
		var opts []naming.RefOption
		if b.Default {
			opts = append(opts, naming.AsDefault())
		}
		if b.Listener != "" {
			opts = append(opts, naming.WithListener(b.Listener))
		}
		return naming.NewIndirectRef(b.Name, b.Target, b.Type, opts...)

	default:
		if builders == nil {
			return nil, fmt.Errorf("no factory builders configured")
		}
		return naming.BuildFactoryRef(b.Type, naming.Properties(b.Factory), builders)
	}
}

// Apply deploys every unit in order. It stops at the first failure; units
// already deployed stay deployed.
func (m *Manifest) Apply(ctx context.Context, e *naming.Engine, builders *naming.Builders) error {
	for _, u := range m.Units {
		batch, err := u.Batch(builders)
		if err != nil {
			return err
		}
		if err := e.Deploy(ctx, u.DeploymentUnit(), batch); err != nil {
			return err
		}
	}
	return nil
}

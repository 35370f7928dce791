package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/naming"
)

const shopManifest = `
units:
  - application: shop
    bindings:
      - level: app
        name: env/region
        value: eu-west-1
        type: string
  - application: shop
    module: orders
    component: checkout
    bindings:
      - level: component
        name: env/region
        target: app/env/region
        type: string
      - level: component
        name: env/timeout
        value: 30
      - level: module
        name: env/queue
        target: jms/orders
        type: Queue
        default: true
`

type queue struct{ name string }

func newEngine(t *testing.T) *naming.Engine {
	t.Helper()

	e, err := naming.New(naming.WithConfig(config.New(config.WithFactoryWaitTimeout(0))))
	require.NoError(t, err)
	require.NoError(t, e.Defaults().Register("Queue", naming.DefaultProviderFunc(
		func(context.Context, string, *naming.ResourceInfo) (any, error) {
			return &queue{name: "default"}, nil
		})))
	return e
}

func TestParseAndApply(t *testing.T) {
	m, err := Parse([]byte(shopManifest))
	require.NoError(t, err)
	require.Len(t, m.Units, 2)
	assert.Equal(t, naming.LevelComponent, m.Units[1].DeploymentUnit().Level())

	ctx := context.Background()
	e := newEngine(t)
	require.NoError(t, m.Apply(ctx, e, nil))

	scope, err := e.Scope(m.Units[1].DeploymentUnit())
	require.NoError(t, err)

	tests := []struct {
		name string
		want any
	}{
		{"comp/env/region", "eu-west-1"},
		{"comp/env/timeout", 30},
		{"module/env/queue", &queue{name: "default"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := e.Lookup(ctx, naming.LookupRequest{Scope: scope, Name: tt.name})
			require.NoError(t, err)
			assert.Equal(t, tt.want, obj)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, m.Units)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("units:\n  - application: shop\n    owner: me\n"))
	assert.True(t, errors.IsConfiguration(err))
}

func TestUnit_BatchErrors(t *testing.T) {
	unit := Unit{Application: "shop", Module: "orders"}

	tests := []struct {
		name    string
		binding Binding
	}{
		{"unknown level", Binding{Level: "java", Name: "x", Value: 1}},
		{"nothing declared", Binding{Level: "module", Name: "x"}},
		{"value and target", Binding{Level: "module", Name: "x", Value: 1, Target: "y"}},
		{"factory without builders", Binding{Level: "module", Name: "x", Type: "DataSource", Factory: map[string]string{"url": "u"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit.Bindings = []Binding{tt.binding}
			_, err := unit.Batch(nil)
			assert.True(t, errors.IsConfiguration(err))
		})
	}
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	m := &Manifest{Units: []Unit{
		{Application: "shop", Bindings: []Binding{{Level: "app", Name: "a", Value: 1}}},
		{Application: "shop", Bindings: []Binding{{Level: "module", Name: "b", Value: 2}}},
		{Application: "audit", Bindings: []Binding{{Level: "app", Name: "c", Value: 3}}},
	}}

	e := newEngine(t)
	err := m.Apply(context.Background(), e, nil)
	require.Error(t, err)

	_, found := e.FindScope(naming.DeploymentUnit{Application: "audit"})
	assert.False(t, found)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopManifest), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Units, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsConfiguration(err))
}

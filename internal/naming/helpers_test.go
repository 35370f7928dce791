package naming

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/binder/internal/config"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	cfg := config.New(config.WithFactoryWaitTimeout(0))
	e, err := New(append([]Option{WithConfig(cfg)}, opts...)...)
	require.NoError(t, err)
	return e
}

func mustScope(t *testing.T, e *Engine, unit DeploymentUnit) ScopeID {
	t.Helper()

	id, err := e.Scope(unit)
	require.NoError(t, err)
	return id
}

func mustRef(t *testing.T, name, target, typ string, opts ...RefOption) *IndirectRef {
	t.Helper()

	ref, err := NewIndirectRef(name, target, typ, opts...)
	require.NoError(t, err)
	return ref
}

var (
	appUnit  = DeploymentUnit{Application: "shop"}
	modUnit  = DeploymentUnit{Application: "shop", Module: "orders"}
	compUnit = DeploymentUnit{Application: "shop", Module: "orders", Component: "checkout"}
	peerUnit = DeploymentUnit{Application: "shop", Module: "orders", Component: "billing"}
)

// countingFactory returns obj and counts invocations.
type countingFactory struct {
	obj   any
	calls atomic.Int32
	infos chan *ResourceInfo
}

func (f *countingFactory) CreateResource(_ context.Context, info *ResourceInfo) (any, error) {
	f.calls.Add(1)
	if f.infos != nil {
		f.infos <- info
	}
	return f.obj, nil
}
